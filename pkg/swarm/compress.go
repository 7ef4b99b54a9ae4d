package swarm

// CompressionLevel selects how aggressively context is shortened.
type CompressionLevel string

const (
	CompressionNone       CompressionLevel = "none"
	CompressionLight      CompressionLevel = "light"
	CompressionAggressive CompressionLevel = "aggressive"
	CompressionSemantic   CompressionLevel = "semantic"
)

// Ratio is the fraction of the original text a level keeps.
func (l CompressionLevel) Ratio() float64 {
	switch l {
	case CompressionLight:
		return 0.8
	case CompressionAggressive:
		return 0.6
	case CompressionSemantic:
		return 0.4
	default:
		return 1.0
	}
}

// Compress cuts text to floor(len*ratio) bytes. The result is lossy; callers
// must not assume it ends on a token boundary.
func Compress(text string, level CompressionLevel) string {
	keep := int(float64(len(text)) * level.Ratio())
	if keep >= len(text) {
		return text
	}
	return text[:keep]
}
