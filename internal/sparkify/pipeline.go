package sparkify

import (
	"time"

	"sparkify/internal/config"
)

// DefaultPipeline is the production Sparkify pipeline: stage the event logs
// for the run's month and the full song catalog from the public Udacity
// bucket, load songplays, refresh the four dimensions and check that every
// star-schema table is populated.
func DefaultPipeline() config.Pipeline {
	p := config.Pipeline{
		Job:       "sparkify",
		Warehouse: config.Warehouse{Kind: "redshift", DSN: "${REDSHIFT_DSN}"},
		ObjectStorage: config.ObjectStorage{
			Bucket:      "udacity-dend",
			Region:      "us-west-2",
			Credentials: "aws_credentials",
		},
		Credentials: config.Credentials{Provider: "env"},
		Stages: []config.Stage{
			{
				Name:     "stage_events",
				Table:    "staging_events",
				S3Key:    `log_data/{{.LogicalDate.Year}}/{{printf "%02d" .LogicalDate.Month}}`,
				JSONPath: "s3://udacity-dend/log_json_path.json",
			},
			{
				Name:     "stage_songs",
				Table:    "staging_songs",
				S3Key:    "song_data",
				JSONPath: "auto",
			},
		},
		Fact: config.Fact{
			Name:     "load_songplays_fact_table",
			Table:    "songplays",
			SQLQuery: SongplaySelect,
			Columns:  SongplayColumns,
		},
		Dimensions: []config.Dimension{
			{Name: "load_user_dim_table", Table: "users", SQLQuery: UserSelect, Columns: UserColumns, InsertMode: config.InsertTruncateInsert},
			{Name: "load_song_dim_table", Table: "songs", SQLQuery: SongSelect, Columns: SongColumns, InsertMode: config.InsertTruncateInsert},
			{Name: "load_artist_dim_table", Table: "artists", SQLQuery: ArtistSelect, Columns: ArtistColumns, InsertMode: config.InsertTruncateInsert},
			{Name: "load_time_dim_table", Table: "time", SQLQuery: TimeSelect, Columns: TimeColumns, InsertMode: config.InsertTruncateInsert},
		},
		Quality: config.Quality{
			Name: "run_data_quality_checks",
			TestCases: []config.TestCase{
				{CheckSQL: "SELECT COUNT(*) > 0 FROM songplays", ExpectedResult: true},
				{CheckSQL: "SELECT COUNT(*) > 0 FROM users", ExpectedResult: true},
				{CheckSQL: "SELECT COUNT(*) > 0 FROM songs", ExpectedResult: true},
				{CheckSQL: "SELECT COUNT(*) > 0 FROM artists", ExpectedResult: true},
				{CheckSQL: "SELECT COUNT(*) > 0 FROM time", ExpectedResult: true},
				{CheckSQL: "SELECT COUNT(*) = 0 FROM users WHERE user_id IS NULL", ExpectedResult: true},
			},
		},
		Runtime: config.Runtime{
			MaxParallel: 4,
			Retries:     3,
			RetryDelay:  config.Duration(5 * time.Minute),
			Schedule:    "@hourly",
		},
	}
	p.ApplyDefaults()
	return p
}
