// Package allocation implements the Swensen target-allocation model adapted
// to Mexico: asset classes, automatic classification and diversification
// reports against configurable targets.
package allocation

// ClassInfo describes one allocation bucket.
type ClassInfo struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Target      float64 `json:"swensen_target"` // default target percentage
	Color       string  `json:"color"`          // chart color
}

// Unclassified is the fallback bucket for transactions with no tag.
const Unclassified = "sin_clasificar"

// Classes is the closed set of allocation buckets, in display order.
var Classes = []ClassInfo{
	{Code: "acciones_mexico", Name: "Acciones Mexico", Description: "Empresas mexicanas", Target: 15, Color: "#006847"},
	{Code: "acciones_usa", Name: "Acciones Estados Unidos", Description: "Empresas estadounidenses", Target: 30, Color: "#3C3B6E"},
	{Code: "acciones_internacionales", Name: "Acciones Internacionales", Description: "Mercados desarrollados (Europa, Asia)", Target: 15, Color: "#17A2B8"},
	{Code: "mercados_emergentes", Name: "Mercados Emergentes", Description: "Paises en desarrollo", Target: 5, Color: "#20C997"},
	{Code: "fibras", Name: "FIBRAs", Description: "Bienes raices", Target: 20, Color: "#6F42C1"},
	{Code: "cetes", Name: "CETES", Description: "Certificados del Tesoro", Target: 5, Color: "#28A745"},
	{Code: "bonos_gubernamentales", Name: "Bonos Gubernamentales", Description: "Bonos largo plazo", Target: 5, Color: "#007BFF"},
	{Code: "udibonos", Name: "UDIBONOS", Description: "Bonos anti-inflacion", Target: 5, Color: "#FD7E14"},
	{Code: "oro_materias_primas", Name: "Oro y Materias Primas", Description: "Commodities", Target: 0, Color: "#FFC107"},
	{Code: "criptomonedas", Name: "Criptomonedas", Description: "Activos digitales", Target: 0, Color: "#E83E8C"},
}

var classIndex = func() map[string]ClassInfo {
	m := make(map[string]ClassInfo, len(Classes))
	for _, c := range Classes {
		m[c.Code] = c
	}
	return m
}()

// ClassByCode returns the bucket metadata, with a grey fallback for unknown
// or missing codes.
func ClassByCode(code string) ClassInfo {
	if info, ok := classIndex[code]; ok {
		return info
	}
	return ClassInfo{Code: Unclassified, Name: "Sin Clasificar", Description: "No clasificado", Target: 0, Color: "#6C757D"}
}

// IsValidClass reports whether code is a known allocation bucket.
func IsValidClass(code string) bool {
	_, ok := classIndex[code]
	return ok
}

// DefaultTargets returns the Swensen default target per bucket.
func DefaultTargets() map[string]float64 {
	targets := make(map[string]float64, len(Classes))
	for _, c := range Classes {
		targets[c.Code] = c.Target
	}
	return targets
}
