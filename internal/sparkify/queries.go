package sparkify

// Star-schema SELECTs over the staging tables. Each is paired with the column
// list it fills; the loaders prepend INSERT INTO.
var (
	SongplayColumns = columns("start_time, user_id, level, song_id, artist_id, session_id, location, user_agent")
	SongplaySelect  = `
    SELECT DISTINCT TIMESTAMP 'epoch' + se.ts/1000 * interval '1 second' AS start_time,
        se.userId                   AS user_id,
        se.level                    AS level,
        ss.song_id                  AS song_id,
        ss.artist_id                AS artist_id,
        se.sessionId                AS session_id,
        se.location                 AS location,
        se.userAgent                AS user_agent
    FROM staging_events AS se
    JOIN staging_songs AS ss ON (se.song = ss.title AND se.artist = ss.artist_name)
    WHERE se.page = 'NextSong'`

	UserColumns = columns("user_id, first_name, last_name, gender, level")
	UserSelect  = `
    SELECT DISTINCT se.userId        AS user_id,
        se.firstName                 AS first_name,
        se.lastName                  AS last_name,
        se.gender                    AS gender,
        se.level                     AS level
    FROM staging_events AS se
    WHERE se.page = 'NextSong'`

	SongColumns = columns("song_id, title, artist_id, year, duration")
	SongSelect  = `
    SELECT DISTINCT ss.song_id       AS song_id,
        ss.title                     AS title,
        ss.artist_id                 AS artist_id,
        ss.year                      AS year,
        ss.duration                  AS duration
    FROM staging_songs AS ss`

	ArtistColumns = columns("artist_id, name, location, latitude, longitude")
	ArtistSelect  = `
    SELECT DISTINCT ss.artist_id     AS artist_id,
        ss.artist_name               AS name,
        ss.artist_location           AS location,
        ss.artist_latitude           AS latitude,
        ss.artist_longitude          AS longitude
    FROM staging_songs AS ss`

	// weekday repeats the week extraction, matching the warehouse that
	// existing reports were built against.
	// TODO: switch weekday to EXTRACT(dow ...) once reporting confirms the
	// column is meant as day of week; existing rows will need a backfill.
	TimeColumns = columns("start_time, hour, day, week, month, year, weekday")
	TimeSelect  = `
    SELECT DISTINCT TIMESTAMP 'epoch' + se.ts/1000 * interval '1 second' AS start_time,
        EXTRACT(hour FROM start_time)    AS hour,
        EXTRACT(day FROM start_time)     AS day,
        EXTRACT(week FROM start_time)    AS week,
        EXTRACT(month FROM start_time)   AS month,
        EXTRACT(year FROM start_time)    AS year,
        EXTRACT(week FROM start_time)    AS weekday
    FROM staging_events AS se
    WHERE se.page = 'NextSong'`
)
