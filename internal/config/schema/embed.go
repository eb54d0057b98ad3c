package schema

import _ "embed"

//go:embed pkg-pipeline-config.schema.json
var ConfigSchema []byte

//go:embed pipeline-file.schema.json
var PipelineFileSchema []byte
