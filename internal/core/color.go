package core

// Color is a foreground color for one screen cell. The terminal front end
// maps each value onto an ANSI 256-color style.
type Color uint8

// Board palette. Each tetromino has its own color; garbage rows and the
// ghost piece use the muted ones.
const (
	ColorDefault Color = iota
	ColorRed           // Z
	ColorGreen         // S
	ColorYellow        // O
	ColorBlue          // J
	ColorMagenta       // T
	ColorCyan          // I
	ColorOrange        // L
	ColorGray          // Garbage and locked-out boards
	ColorDim           // Ghost piece
)
