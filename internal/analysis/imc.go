package analysis

import "math"

// IMCLevel is the qualitative reading of a body-mass index.
type IMCLevel struct {
	Label string `json:"label"`
	Color Color  `json:"color"`
}

// ComputeIMC returns weight / height², rounded to one decimal. A height
// above 3 is taken as centimetres.
func ComputeIMC(poidsKg, taille float64) (float64, bool) {
	if poidsKg <= 0 || taille <= 0 {
		return 0, false
	}
	if taille > 3 {
		taille /= 100
	}
	imc := poidsKg / (taille * taille)
	return math.Round(imc*10) / 10, true
}

// IMCCategory classifies a body-mass index.
func IMCCategory(imc float64) IMCLevel {
	switch {
	case imc < 18.5:
		return IMCLevel{Label: "Maigreur", Color: ColorYellow}
	case imc < 25:
		return IMCLevel{Label: "Normal", Color: ColorGreen}
	case imc < 30:
		return IMCLevel{Label: "Surpoids", Color: ColorYellow}
	default:
		return IMCLevel{Label: "Obésité", Color: ColorRed}
	}
}
