package graph

// RoadClass is the ordered road classification, from heaviest traffic
// carrier down to unpaved track.
type RoadClass uint8

const (
	ClassMotorway = RoadClass(iota + 1)
	ClassTrunk
	ClassPrimary
	ClassSecondary
	ClassTertiary
	ClassResidential
	ClassService
	ClassUnclassified
	ClassCycleway
	ClassFootway
	ClassPath
	ClassTrack
)

func (c RoadClass) String() string {
	return [...]string{
		"motorway", "trunk", "primary", "secondary", "tertiary",
		"residential", "service", "unclassified", "cycleway",
		"footway", "path", "track",
	}[c-1]
}

var roadClassNames = map[string]RoadClass{
	"motorway": ClassMotorway, "trunk": ClassTrunk, "primary": ClassPrimary,
	"secondary": ClassSecondary, "tertiary": ClassTertiary,
	"residential": ClassResidential, "service": ClassService,
	"unclassified": ClassUnclassified, "cycleway": ClassCycleway,
	"footway": ClassFootway, "path": ClassPath, "track": ClassTrack,
}

// ParseRoadClass maps a class tag to its RoadClass. Unrecognized tags
// map to unclassified.
func ParseRoadClass(s string) RoadClass {
	if c, ok := roadClassNames[s]; ok {
		return c
	}
	return ClassUnclassified
}

// ClassGroup is the broad traffic-character group of a road class.
// Edges in different groups never cluster into the same corridor.
type ClassGroup uint8

const (
	// GroupLadder is the motorway..tertiary descending traffic ladder.
	GroupLadder = ClassGroup(iota + 1)
	// GroupLocal covers residential, service and unclassified streets.
	GroupLocal
	GroupCycleway
	// GroupPathFoot covers path and footway.
	GroupPathFoot
	GroupTrack
)

func (g ClassGroup) String() string {
	return [...]string{"ladder", "local", "cycleway", "pathfoot", "track"}[g-1]
}

// Group returns the broad group the class belongs to.
func (c RoadClass) Group() ClassGroup {
	switch c {
	case ClassMotorway, ClassTrunk, ClassPrimary, ClassSecondary, ClassTertiary:
		return GroupLadder
	case ClassResidential, ClassService, ClassUnclassified:
		return GroupLocal
	case ClassCycleway:
		return GroupCycleway
	case ClassFootway, ClassPath:
		return GroupPathFoot
	default:
		return GroupTrack
	}
}

// GroupRank returns the ordinal rank of the class within its group,
// starting at 0. Used for within-group compatibility decay.
func (c RoadClass) GroupRank() int {
	switch c {
	case ClassMotorway, ClassResidential, ClassCycleway, ClassFootway, ClassTrack:
		return 0
	case ClassTrunk, ClassService, ClassPath:
		return 1
	case ClassPrimary, ClassUnclassified:
		return 2
	case ClassSecondary:
		return 3
	default: // tertiary
		return 4
	}
}

// SurfaceType is the riding-surface classification of an edge.
type SurfaceType uint8

const (
	SurfaceUnknown = SurfaceType(iota)
	SurfaceAsphalt
	SurfaceConcrete
	SurfacePavingStones
	SurfaceCompacted
	SurfaceGravel
	SurfaceFineGravel
	SurfaceDirt
	SurfaceGrass
)

func (s SurfaceType) String() string {
	return [...]string{
		"unknown", "asphalt", "concrete", "paving_stones",
		"compacted", "gravel", "fine_gravel", "dirt", "grass",
	}[s]
}

var surfaceNames = map[string]SurfaceType{
	"asphalt": SurfaceAsphalt, "concrete": SurfaceConcrete,
	"paving_stones": SurfacePavingStones, "compacted": SurfaceCompacted,
	"gravel": SurfaceGravel, "fine_gravel": SurfaceFineGravel,
	"dirt": SurfaceDirt, "grass": SurfaceGrass,
}

// ParseSurface maps a surface tag to its SurfaceType. Unrecognized tags
// map to unknown.
func ParseSurface(s string) SurfaceType {
	return surfaceNames[s]
}

// Paved reports whether the surface belongs to the paved group.
func (s SurfaceType) Paved() bool {
	switch s {
	case SurfaceAsphalt, SurfaceConcrete, SurfacePavingStones:
		return true
	default:
		return false
	}
}

// QualityRank orders surfaces from smoothest (0) to roughest. Unknown
// surfaces rank last.
func (s SurfaceType) QualityRank() int {
	switch s {
	case SurfaceAsphalt:
		return 0
	case SurfaceConcrete:
		return 1
	case SurfacePavingStones:
		return 2
	case SurfaceCompacted:
		return 3
	case SurfaceFineGravel:
		return 4
	case SurfaceGravel:
		return 5
	case SurfaceDirt:
		return 6
	case SurfaceGrass:
		return 7
	default:
		return 8
	}
}
