package prompts

import _ "embed"

//go:embed rater_system.txt
var RaterSystemPrompt string
