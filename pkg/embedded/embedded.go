package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/continuation_system_prompt.txt
var ContinuationSystemPromptTxt []byte

//go:embed data/continuation_prompt.tmpl
var ContinuationPromptTmpl []byte
