package timeline

const (
	DefaultPageSize     = 50
	DefaultConcurrency  = 4
	DefaultMaxWalkSteps = 500
)

// Options tune a timeline build. Zero values fall back to the defaults.
type Options struct {
	// PageSize is the activity feed page size.
	PageSize int
	// Concurrency bounds parallel walks and comment fetches; 1 is sequential.
	Concurrency int
	// MaxWalkSteps caps the commits fetched by one walk.
	MaxWalkSteps int
	// Strict fails a walk whose chain ends before the merge base.
	Strict bool
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxWalkSteps <= 0 {
		o.MaxWalkSteps = DefaultMaxWalkSteps
	}
	return o
}
