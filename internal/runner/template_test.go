package runner

import (
	"testing"
	"time"

	v1 "github.com/infracollect/epubfold/apis/v1"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVariables(t *testing.T) {
	job := v1.ConvertJob{
		Metadata: v1.Metadata{Name: "library"},
	}

	t.Run("built-in variables are set", func(t *testing.T) {
		variables, err := BuildVariables(job, nil)
		require.NoError(t, err)

		assert.Equal(t, "library", variables["JOB_NAME"])
		_, err = time.Parse("20060102T150405Z", variables["JOB_DATE_ISO8601"])
		require.NoError(t, err, "JOB_DATE_ISO8601 should be valid ISO8601 basic format")
		_, err = time.Parse(time.RFC3339, variables["JOB_DATE_RFC3339"])
		require.NoError(t, err, "JOB_DATE_RFC3339 should be valid RFC3339 format")
		assert.Len(t, variables, 3)
	})

	t.Run("allowed env variables are included", func(t *testing.T) {
		t.Setenv("BOOKS_BUCKET", "my-books")

		variables, err := BuildVariables(job, []string{"BOOKS_BUCKET"})
		require.NoError(t, err)
		assert.Equal(t, "my-books", variables["BOOKS_BUCKET"])
	})

	t.Run("error accumulates for missing env variables", func(t *testing.T) {
		_, err := BuildVariables(job, []string{"MISSING1", "MISSING2"})
		require.Error(t, err)
		assert.ErrorContains(t, err, "MISSING1")
		assert.ErrorContains(t, err, "MISSING2")
		assert.ErrorContains(t, err, "is not set")
	})
}

func TestExpandTemplates_ConvertJob(t *testing.T) {
	job := v1.ConvertJob{
		Kind:     v1.ConvertJobKind,
		Metadata: v1.Metadata{Name: "library"},
		Spec: v1.ConvertJobSpec{
			Source: v1.SourceSpec{Directory: "${HOME_DIR}/books", Suffix: ".epub"},
			Output: v1.OutputSpec{
				Directory: "converted-${JOB_NAME}",
				S3: &v1.S3Spec{
					Bucket:          "${BUCKET}",
					Prefix:          "${JOB_NAME}/${JOB_DATE_ISO8601}",
					SecretAccessKey: "${SECRET}",
				},
			},
			Compression: &v1.CompressionSpec{Level: lo.ToPtr(9)},
		},
	}
	variables := map[string]string{
		"HOME_DIR":         "/home/reader",
		"JOB_NAME":         "library",
		"JOB_DATE_ISO8601": "20240101T000000Z",
		"BUCKET":           "shelf",
		"SECRET":           "s3cr3t",
	}

	require.NoError(t, ExpandTemplates(&job, variables))

	assert.Equal(t, "/home/reader/books", job.Spec.Source.Directory)
	assert.Equal(t, ".epub", job.Spec.Source.Suffix, "untagged fields are left alone")
	assert.Equal(t, "converted-library", job.Spec.Output.Directory)
	assert.Equal(t, "shelf", job.Spec.Output.S3.Bucket)
	assert.Equal(t, "library/20240101T000000Z", job.Spec.Output.S3.Prefix)
	assert.Equal(t, "s3cr3t", job.Spec.Output.S3.SecretAccessKey)
	assert.Equal(t, 9, *job.Spec.Compression.Level)
}

func TestExpandTemplates_Fields(t *testing.T) {
	type inner struct {
		Value string `template:""`
	}
	type S struct {
		Plain    string
		Skipped  string  `template:"-"`
		Tagged   string  `template:""`
		Ptr      *string `template:""`
		NilPtr   *string `template:""`
		Nested   inner
		NestedP  *inner
		NilInner *inner
	}

	shared := "${NAME}"
	in := S{
		Plain:   "${NAME}",
		Skipped: "${NAME}",
		Tagged:  "${NAME}",
		Ptr:     &shared,
		Nested:  inner{Value: "${NAME}"},
		NestedP: &inner{Value: "${NAME}"},
	}

	require.NoError(t, ExpandTemplates(&in, map[string]string{"NAME": "x"}))

	assert.Equal(t, "${NAME}", in.Plain)
	assert.Equal(t, "${NAME}", in.Skipped)
	assert.Equal(t, "x", in.Tagged)
	assert.Equal(t, "x", *in.Ptr)
	assert.Equal(t, "${NAME}", shared, "caller's string is not modified")
	assert.Nil(t, in.NilPtr)
	assert.Equal(t, "x", in.Nested.Value)
	assert.Equal(t, "x", in.NestedP.Value)
	assert.Nil(t, in.NilInner)
}

func TestExpandTemplates_MissingVariable(t *testing.T) {
	job := v1.ConvertJob{
		Spec: v1.ConvertJobSpec{Source: v1.SourceSpec{Directory: "${NOPE}"}},
	}

	err := ExpandTemplates(&job, map[string]string{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "NOPE")
	assert.ErrorContains(t, err, "Directory")
}

func TestExpandTemplates_NotAStruct(t *testing.T) {
	s := "${X}"
	require.Error(t, ExpandTemplates(&s, nil))

	var nilJob *v1.ConvertJob
	require.NoError(t, ExpandTemplates(nilJob, nil))
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		variables map[string]string
		want      string
		wantErr   string
	}{
		{name: "no references", value: "plain", want: "plain"},
		{name: "braced", value: "${A}-${B}", variables: map[string]string{"A": "1", "B": "2"}, want: "1-2"},
		{name: "bare", value: "$A/x", variables: map[string]string{"A": "1"}, want: "1/x"},
		{name: "missing", value: "${A}", wantErr: `"A" is not in the allowed list`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.value, tt.variables)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
