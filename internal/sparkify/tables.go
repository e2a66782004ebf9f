// Package sparkify holds the Sparkify warehouse schema: table DDL, the
// star-schema SELECTs fed to the fact and dimension loads, row-count queries
// and the default pipeline definition.
package sparkify

import (
	"fmt"
	"strings"
)

// Table is one warehouse table with its DDL.
type Table struct {
	Name   string
	Create string
	Drop   string
}

// Dialects with DDL. Redshift DDL carries distribution and sort keys.
const (
	DialectRedshift = "redshift"
	DialectPostgres = "postgres"
)

// Tables returns the schema in creation order: staging, dimensions, then the
// fact table that references them, then time.
func Tables(dialect string) ([]Table, error) {
	var redshift bool
	switch dialect {
	case DialectRedshift:
		redshift = true
	case DialectPostgres:
	default:
		return nil, fmt.Errorf("no DDL for dialect %q", dialect)
	}

	// rs returns the Redshift-only suffix when the dialect is redshift.
	rs := func(s string) string {
		if redshift {
			return s
		}
		return ""
	}
	identity := "INTEGER IDENTITY (1, 1) SORTKEY PRIMARY KEY"
	if !redshift {
		identity = "SERIAL PRIMARY KEY"
	}

	return []Table{
		{
			Name: "staging_events",
			Create: `CREATE TABLE IF NOT EXISTS staging_events
(
    artist VARCHAR,
    auth VARCHAR,
    firstName VARCHAR,
    gender CHAR(1),
    itemInSession INTEGER,
    lastName VARCHAR,
    length FLOAT,
    level VARCHAR,
    location VARCHAR,
    method VARCHAR,
    page VARCHAR,
    registration FLOAT,
    sessionId INTEGER,
    song VARCHAR,
    status INTEGER,
    ts BIGINT,
    userAgent VARCHAR,
    userId INTEGER
)`,
			Drop: "DROP TABLE IF EXISTS staging_events",
		},
		{
			Name: "staging_songs",
			Create: `CREATE TABLE IF NOT EXISTS staging_songs
(
    num_songs INTEGER,
    artist_id VARCHAR,
    artist_latitude FLOAT,
    artist_longitude FLOAT,
    artist_location VARCHAR,
    artist_name VARCHAR,
    song_id VARCHAR,
    title VARCHAR,
    duration FLOAT,
    year INTEGER
)`,
			Drop: "DROP TABLE IF EXISTS staging_songs",
		},
		{
			Name: "users",
			Create: `CREATE TABLE IF NOT EXISTS users
(
    user_id INTEGER PRIMARY KEY,
    first_name VARCHAR,
    last_name VARCHAR,
    gender CHAR(1),
    level VARCHAR
)` + rs(" DISTSTYLE ALL"),
			Drop: "DROP TABLE IF EXISTS users CASCADE",
		},
		{
			Name: "songs",
			Create: `CREATE TABLE IF NOT EXISTS songs
(
    song_id VARCHAR` + rs(" SORTKEY") + ` PRIMARY KEY,
    title VARCHAR,
    artist_id VARCHAR,
    year INTEGER,
    duration FLOAT
)` + rs(" DISTSTYLE ALL"),
			Drop: "DROP TABLE IF EXISTS songs CASCADE",
		},
		{
			Name: "artists",
			Create: `CREATE TABLE IF NOT EXISTS artists
(
    artist_id VARCHAR` + rs(" SORTKEY") + ` PRIMARY KEY,
    name VARCHAR,
    location VARCHAR,
    latitude FLOAT,
    longitude FLOAT
)` + rs(" DISTSTYLE ALL"),
			Drop: "DROP TABLE IF EXISTS artists CASCADE",
		},
		{
			Name: "songplays",
			Create: `CREATE TABLE IF NOT EXISTS songplays
(
    songplay_id ` + identity + `,
    start_time TIMESTAMP,
    user_id INTEGER REFERENCES users(user_id)` + rs(" DISTKEY") + `,
    level VARCHAR,
    song_id VARCHAR REFERENCES songs(song_id),
    artist_id VARCHAR REFERENCES artists(artist_id),
    session_id INTEGER,
    location VARCHAR,
    user_agent VARCHAR
)`,
			Drop: "DROP TABLE IF EXISTS songplays CASCADE",
		},
		{
			Name: "time",
			Create: `CREATE TABLE IF NOT EXISTS time
(
    start_time TIMESTAMP` + rs(" SORTKEY") + ` PRIMARY KEY,
    hour INTEGER,
    day INTEGER,
    week INTEGER,
    month INTEGER,
    year INTEGER,
    weekday INTEGER
)` + rs(" DISTSTYLE ALL"),
			Drop: "DROP TABLE IF EXISTS time",
		},
	}, nil
}

// DropOrder returns the tables in the order they should be dropped: the fact
// table before the dimensions it references.
func DropOrder(tables []Table) []Table {
	order := []string{"staging_events", "staging_songs", "songplays", "users", "songs", "artists", "time"}
	byName := make(map[string]Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	out := make([]Table, 0, len(tables))
	for _, n := range order {
		if t, ok := byName[n]; ok {
			out = append(out, t)
			delete(byName, n)
		}
	}
	for _, t := range tables {
		if _, left := byName[t.Name]; left {
			out = append(out, t)
		}
	}
	return out
}

// TableNames lists every table in creation order.
func TableNames() []string {
	return []string{"staging_events", "staging_songs", "users", "songs", "artists", "songplays", "time"}
}

// CountQuery returns SELECT COUNT(*) FROM <table>.
func CountQuery(table string) string {
	return "SELECT COUNT(*) FROM " + table
}

// CountQueries returns one count query per table, in TableNames order.
func CountQueries() []string {
	names := TableNames()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = CountQuery(n)
	}
	return out
}

func columns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}
