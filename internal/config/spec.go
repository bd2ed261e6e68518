package config

import "graphjson/internal/pipeline"

// PipelineSpec resolves the preset named by Pipeline and applies path and
// schema overrides.
func (c *Config) PipelineSpec() (pipeline.Spec, error) {
	spec, err := pipeline.Preset(c.Pipeline)
	if err != nil {
		return pipeline.Spec{}, err
	}
	spec.Input = firstNonEmpty(c.Input, spec.Input)
	spec.NodeInput = firstNonEmpty(c.NodeInput, spec.NodeInput)
	spec.Output = firstNonEmpty(c.Output, spec.Output)
	if c.SchemaFile != "" {
		sf, err := LoadSchemaFile(c.SchemaFile)
		if err != nil {
			return pipeline.Spec{}, err
		}
		if err := sf.ApplyTo(&spec); err != nil {
			return pipeline.Spec{}, err
		}
	}
	return spec, spec.Validate()
}
