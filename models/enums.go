package models

// ConflictType klassifiziert ein Ereignis.
type ConflictType string

const (
	ConflictWar              ConflictType = "war"
	ConflictInvasion         ConflictType = "invasion"
	ConflictMassacre         ConflictType = "massacre"
	ConflictRiot             ConflictType = "riot"
	ConflictFamine           ConflictType = "famine"
	ConflictPartitionEvent   ConflictType = "partition_event"
	ConflictUprising         ConflictType = "uprising"
	ConflictImperialCampaign ConflictType = "imperial_campaign"
	ConflictCivilConflict    ConflictType = "civil_conflict"
	ConflictCommunalViolence ConflictType = "communal_violence"
	ConflictOther            ConflictType = "other"
)

// ConflictTypes listet alle gültigen Typen in stabiler Reihenfolge.
var ConflictTypes = []ConflictType{
	ConflictWar, ConflictInvasion, ConflictMassacre, ConflictRiot, ConflictFamine,
	ConflictPartitionEvent, ConflictUprising, ConflictImperialCampaign,
	ConflictCivilConflict, ConflictCommunalViolence, ConflictOther,
}

func (t ConflictType) Valid() bool {
	for _, v := range ConflictTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ConflictScale beschreibt die räumliche Ausdehnung.
type ConflictScale string

const (
	ScaleLocal          ConflictScale = "local"
	ScaleRegional       ConflictScale = "regional"
	ScaleSubcontinental ConflictScale = "subcontinental"
	ScaleInternational  ConflictScale = "international"
)

var ConflictScales = []ConflictScale{ScaleLocal, ScaleRegional, ScaleSubcontinental, ScaleInternational}

func (s ConflictScale) Valid() bool {
	for _, v := range ConflictScales {
		if v == s {
			return true
		}
	}
	return false
}

// ActorRole ist die Rolle einer beteiligten Partei.
type ActorRole string

const (
	RoleAggressor     ActorRole = "aggressor"
	RoleDefender      ActorRole = "defender"
	RoleColonialPower ActorRole = "colonial_power"
	RoleRebelGroup    ActorRole = "rebel_group"
	RoleEmpire        ActorRole = "empire"
	RoleKingdom       ActorRole = "kingdom"
	RoleState         ActorRole = "state"
	RoleOther         ActorRole = "other"
)

var ActorRoles = []ActorRole{
	RoleAggressor, RoleDefender, RoleColonialPower, RoleRebelGroup,
	RoleEmpire, RoleKingdom, RoleState, RoleOther,
}

func (r ActorRole) Valid() bool {
	for _, v := range ActorRoles {
		if v == r {
			return true
		}
	}
	return false
}

// SourceType ist die Art einer Quelle.
type SourceType string

const (
	SourceWikipedia        SourceType = "wikipedia"
	SourceBook             SourceType = "book"
	SourceAcademicPaper    SourceType = "academic_paper"
	SourceDatabase         SourceType = "database"
	SourceGovernmentRecord SourceType = "government_record"
	SourceOther            SourceType = "other"
)

var SourceTypes = []SourceType{
	SourceWikipedia, SourceBook, SourceAcademicPaper,
	SourceDatabase, SourceGovernmentRecord, SourceOther,
}

func (s SourceType) Valid() bool {
	for _, v := range SourceTypes {
		if v == s {
			return true
		}
	}
	return false
}

// DatePrecision gibt an, wie genau ein Datum bekannt ist.
type DatePrecision string

const (
	PrecisionExact   DatePrecision = "exact"
	PrecisionMonth   DatePrecision = "month"
	PrecisionYear    DatePrecision = "year"
	PrecisionDecade  DatePrecision = "decade"
	PrecisionCentury DatePrecision = "century"
)

var DatePrecisions = []DatePrecision{PrecisionExact, PrecisionMonth, PrecisionYear, PrecisionDecade, PrecisionCentury}

func (p DatePrecision) Valid() bool {
	for _, v := range DatePrecisions {
		if v == p {
			return true
		}
	}
	return false
}

// Granularity ist die Bucket-Breite der Zeitleiste.
type Granularity string

const (
	GranularityYear    Granularity = "year"
	GranularityDecade  Granularity = "decade"
	GranularityCentury Granularity = "century"
)

// Width liefert die Bucket-Breite in Jahren, 0 bei ungültigem Wert.
func (g Granularity) Width() int {
	switch g {
	case GranularityYear:
		return 1
	case GranularityDecade:
		return 10
	case GranularityCentury:
		return 100
	}
	return 0
}
