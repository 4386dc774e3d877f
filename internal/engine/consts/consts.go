package consts

// cache key prefixes
const (
	// ServicesByTypeKey caches the active service list per service type.
	ServicesByTypeKey = "visionflow:services:type:"
	// ServiceDetailKey caches a single registry entry by service id.
	ServiceDetailKey = "visionflow:services:detail:"
	// PipelineConfigKey caches a pipeline configuration by config id.
	PipelineConfigKey = "visionflow:config:"
	// DefaultConfigKey caches the current default configuration id.
	DefaultConfigKey = "visionflow:config:default"
	// ExecutionDetailKey caches a terminal execution record by execution id.
	ExecutionDetailKey = "visionflow:execution:"
)
