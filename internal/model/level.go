package model

// Level is one of the six fixed proficiency tiers.
type Level string

const (
	Beginner          Level = "beginner"
	Elementary        Level = "elementary"
	PreIntermediate   Level = "pre_intermediate"
	Intermediate      Level = "intermediate"
	UpperIntermediate Level = "upper_intermediate"
	Advanced          Level = "advanced"
)

// AllLevels is the presentation order of the tiers.
var AllLevels = []Level{
	Beginner,
	Elementary,
	PreIntermediate,
	Intermediate,
	UpperIntermediate,
	Advanced,
}

var levelLabels = map[Level]string{
	Beginner:          "Boshlang'ich",
	Elementary:        "Elementary",
	PreIntermediate:   "Pre-Intermediate",
	Intermediate:      "Intermediate",
	UpperIntermediate: "Upper-Intermediate",
	Advanced:          "Advanced",
}

var levelDescriptions = map[Level]string{
	Beginner:          "Asosiy so'zlar va oddiy gaplar",
	Elementary:        "Kundalik iboralar va asosiy grammatika",
	PreIntermediate:   "Oddiy suhbatlar olib borish",
	Intermediate:      "Tanish mavzular bo'yicha suhbat",
	UpperIntermediate: "Erkin va o'z-o'zidan muloqot",
	Advanced:          "Tilni moslashuvchan va samarali ishlatish",
}

func (l Level) Valid() bool {
	_, ok := levelLabels[l]
	return ok
}

func (l Level) Label() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return string(l)
}

func (l Level) Description() string {
	return levelDescriptions[l]
}
