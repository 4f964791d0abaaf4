package entity

// Option is one allowed value of an enumerated field with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Enum is an ordered set of allowed values.
type Enum struct {
	Field   string   `json:"field"`
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// Contains reports whether v is one of the allowed values.
func (e Enum) Contains(v string) bool {
	for _, o := range e.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// LabelOf returns the display label for v, or v itself if unknown.
func (e Enum) LabelOf(v string) string {
	for _, o := range e.Options {
		if o.Value == v {
			return o.Label
		}
	}
	return v
}

var StudyFields = Enum{
	Field: "study_field",
	Label: "Domaine d'étude",
	Options: []Option{
		{"informatique", "Informatique"},
		{"medecine", "Médecine"},
		{"ingenierie", "Ingénierie"},
		{"economie", "Économie"},
		{"droit", "Droit"},
		{"lettres", "Lettres et Langues"},
		{"sciences", "Sciences Exactes"},
		{"sciences_sociales", "Sciences Sociales"},
		{"arts", "Arts et Design"},
		{"agriculture", "Agriculture"},
	},
}

var DegreeTypes = Enum{
	Field: "degree_type",
	Label: "Type de diplôme",
	Options: []Option{
		{"licence", "Licence"},
		{"master", "Master"},
		{"doctorat", "Doctorat"},
		{"ingenieur", "Ingénieur"},
		{"technicien_superieur", "Technicien Supérieur"},
		{"formation_professionnelle", "Formation Professionnelle"},
	},
}

var CareerInterests = Enum{
	Field: "career_interest",
	Label: "Intérêt professionnel",
	Options: []Option{
		{"recherche", "Recherche Académique"},
		{"industrie", "Secteur Industriel"},
		{"enseignement", "Enseignement"},
		{"entrepreneuriat", "Entrepreneuriat"},
		{"fonction_publique", "Fonction Publique"},
		{"secteur_prive", "Secteur Privé"},
		{"consulting", "Conseil"},
		{"international", "Organisations Internationales"},
	},
}

// Enums lists every enumerated preference field in form order.
func Enums() []Enum {
	return []Enum{StudyFields, DegreeTypes, CareerInterests}
}
