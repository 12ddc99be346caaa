package assets

import (
	_ "embed"
)

// --- Embeds ---

//go:embed joyshim.ini
var DefaultIni []byte
