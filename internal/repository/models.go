package repository

import "time"

// RatingRun is one row of the rating_runs table.
type RatingRun struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      string    `gorm:"column:run_id;type:varchar(64);uniqueIndex"`
	InputPath  string    `gorm:"column:input_path;type:varchar(512)"`
	Players    int       `gorm:"column:players"`
	Edges      int       `gorm:"column:edges"`
	Games      int       `gorm:"column:games"`
	Workers    int       `gorm:"column:workers"`
	Iterations int       `gorm:"column:iterations"`
	TotalError float64   `gorm:"column:total_error"`
	Epsilon    float64   `gorm:"column:epsilon"`
	Converged  bool      `gorm:"column:converged"`
	DurationMs int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for RatingRun.
func (RatingRun) TableName() string {
	return "rating_runs"
}

// PlayerRating is one row of the player_ratings table.
type PlayerRating struct {
	ID     int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID  string  `gorm:"column:run_id;type:varchar(64);index:idx_run_rank,priority:1"`
	Rank   int     `gorm:"column:player_rank;index:idx_run_rank,priority:2"`
	Name   string  `gorm:"column:name;type:varchar(256)"`
	Rating float64 `gorm:"column:rating"`
	Error  float64 `gorm:"column:error"`
	Games  int     `gorm:"column:games"`
	Raw    float64 `gorm:"column:raw"`
}

// TableName returns the table name for PlayerRating.
func (PlayerRating) TableName() string {
	return "player_ratings"
}
