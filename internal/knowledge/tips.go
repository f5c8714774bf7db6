package knowledge

import _ "embed"

//go:embed tips.md
var defaultTips string
