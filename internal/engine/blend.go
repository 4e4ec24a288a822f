package engine

// ComputeBlendedEmotion combina el valor del usuario (70%) con el estimado (30%),
// redondeando half-up en aritmética entera.
func ComputeBlendedEmotion(eUser, eSys int) int {
	eUser, eSys = clampScore(eUser), clampScore(eSys)
	return (7*eUser + 3*eSys + 5) / 10
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
