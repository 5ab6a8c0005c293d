package standards

import "embed"

//go:embed defaults/aips/*.yaml defaults/org/*.yaml
var defaultsFS embed.FS
