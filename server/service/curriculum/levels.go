package curriculum

// MaxLevel is the terminal curriculum level.
const MaxLevel = 10

// levelTopics maps each level to its required grammar topics, ordered the
// way a course would introduce them. Levels 0-2 roughly track A1, 3-5 A2,
// 6-7 B1, 8-9 B2 and 10 C1.
var levelTopics = [MaxLevel + 1][]string{
	0: {
		"personalpronomen",
		"praesens_regelmaessig",
		"sein_haben",
		"bestimmter_artikel",
		"unbestimmter_artikel",
	},
	1: {
		"nominativ",
		"akkusativ",
		"negation_nicht_kein",
		"ja_nein_fragen",
		"w_fragen",
	},
	2: {
		"praesens_unregelmaessig",
		"trennbare_verben",
		"modalverben_koennen_muessen",
		"imperativ",
		"possessivartikel",
	},
	3: {
		"dativ",
		"praepositionen_akkusativ",
		"praepositionen_dativ",
		"perfekt_haben",
		"perfekt_sein",
	},
	4: {
		"wechselpraepositionen",
		"modalverben_praeteritum",
		"komparativ",
		"superlativ",
		"reflexive_verben",
	},
	5: {
		"nebensaetze_weil",
		"nebensaetze_dass",
		"praeteritum_sein_haben",
		"adjektivdeklination_nominativ",
		"verben_mit_dativ",
	},
	6: {
		"praeteritum",
		"nebensaetze_wenn_als",
		"relativsaetze_nominativ",
		"adjektivdeklination_akkusativ",
		"genitiv",
	},
	7: {
		"konjunktiv_ii_wuerde",
		"passiv_praesens",
		"relativsaetze_dativ",
		"infinitiv_mit_zu",
		"adjektivdeklination_dativ",
	},
	8: {
		"passiv_praeteritum",
		"konjunktiv_ii_vergangenheit",
		"plusquamperfekt",
		"nebensaetze_obwohl_trotzdem",
		"partizipialattribute",
	},
	9: {
		"nominalisierung",
		"passiv_mit_modalverben",
		"indirekte_rede",
		"futur_ii",
		"subjektlose_passivsaetze",
	},
	10: {
		"konjunktiv_i",
		"erweiterte_partizipialattribute",
		"funktionsverbgefuege",
		"modalpartikeln",
	},
}

// TopicsForLevel returns the required topics for a level. Out-of-range
// levels return nil.
func TopicsForLevel(level int) []string {
	if level < 0 || level > MaxLevel {
		return nil
	}
	return levelTopics[level]
}
