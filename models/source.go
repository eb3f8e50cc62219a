package models

// SourceSchema names the per-source columns of a cleaned source table.
type SourceSchema struct {
	Name             string
	NaturalKeyColumn string
	PrimaryColumn    string
	SecondaryColumn  string
	PermalinkColumn  string
}

var (
	// DirectorySchema is source A: the directory catalog.
	DirectorySchema = SourceSchema{
		Name:             "directory",
		NaturalKeyColumn: "post_url",
		PrimaryColumn:    "count_save",
		SecondaryColumn:  "count_rating",
		PermalinkColumn:  "directory_url",
	}

	// LaunchboardSchema is source B: the launch board catalog.
	LaunchboardSchema = SourceSchema{
		Name:             "launchboard",
		NaturalKeyColumn: "launchboard_url",
		PrimaryColumn:    "count_follower",
		SecondaryColumn:  "count_review",
		PermalinkColumn:  "launchboard_url",
	}
)
