package v1

const ConvertJobKind = "ConvertJob"

type ConvertJob struct {
	Kind     string         `yaml:"kind" json:"kind" validate:"required,eq=ConvertJob"`
	Metadata Metadata       `yaml:"metadata" json:"metadata"`
	Spec     ConvertJobSpec `yaml:"spec" json:"spec" validate:"required"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type ConvertJobSpec struct {
	Source SourceSpec `yaml:"source" json:"source" validate:"required"`
	Output OutputSpec `yaml:"output,omitempty" json:"output,omitempty"`

	// RemoveOriginal deletes each source folder once its ePub has been written
	// (and published, when a remote destination is configured).
	RemoveOriginal bool `yaml:"remove_original,omitempty" json:"remove_original,omitempty"`

	// DryRun lists what would be converted without writing anything.
	DryRun bool `yaml:"dry_run,omitempty" json:"dry_run,omitempty"`

	// Concurrency is the number of folders converted in parallel (default: 1).
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty" validate:"gte=0,lte=64"`

	Compression *CompressionSpec `yaml:"compression,omitempty" json:"compression,omitempty"`
}

// SourceSpec selects the folders to convert.
type SourceSpec struct {
	// Directory holds the folders to convert. Only its direct children are considered.
	Directory string `yaml:"directory" json:"directory" validate:"required" template:""`

	// Suffix is the name ending that marks a folder for conversion (default: ".epub").
	Suffix string `yaml:"suffix,omitempty" json:"suffix,omitempty" validate:"omitempty,startswith=.,excludes=/"`
}

// OutputSpec configures where ePub files are written.
type OutputSpec struct {
	// Directory receives the ePub files. Relative paths are resolved against
	// the source directory (default: "converted").
	Directory string `yaml:"directory,omitempty" json:"directory,omitempty" template:""`

	// S3 additionally publishes every converted ePub to a bucket.
	S3 *S3Spec `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// S3Spec configures publishing to S3-compatible storage.
type S3Spec struct {
	Bucket          string `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Region          string `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" validate:"omitempty,url" template:""`
	Prefix          string `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty" validate:"required_with=SecretAccessKey" template:""`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty" validate:"required_with=AccessKeyID" template:""`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
}

// CompressionSpec configures deflate compression of archive entries.
type CompressionSpec struct {
	// Level ranges from -1 (default) through 0 (none) to 9 (best).
	Level *int `yaml:"level,omitempty" json:"level,omitempty" validate:"omitempty,gte=-1,lte=9"`
}
