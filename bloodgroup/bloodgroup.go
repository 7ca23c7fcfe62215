package bloodgroup

import "strings"

// The eight ABO/Rh groups
const (
	APositive  = "A+"
	ANegative  = "A-"
	BPositive  = "B+"
	BNegative  = "B-"
	ABPositive = "AB+"
	ABNegative = "AB-"
	OPositive  = "O+"
	ONegative  = "O-"
)

// All lists every valid blood group in a stable order
var All = []string{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
}

// donateTo maps a donor group to the recipient groups it can give to
var donateTo = map[string][]string{
	APositive:  {APositive, ABPositive},
	ANegative:  {APositive, ANegative, ABPositive, ABNegative},
	BPositive:  {BPositive, ABPositive},
	BNegative:  {BPositive, BNegative, ABPositive, ABNegative},
	ABPositive: {ABPositive},
	ABNegative: {ABPositive, ABNegative},
	OPositive:  {APositive, BPositive, ABPositive, OPositive},
	ONegative:  All,
}

// receiveFrom is the inverse view of donateTo
var receiveFrom map[string][]string

func init() {
	receiveFrom = make(map[string][]string, len(All))
	for _, donor := range All {
		for _, recipient := range donateTo[donor] {
			receiveFrom[recipient] = append(receiveFrom[recipient], donor)
		}
	}
}

// Valid reports whether g is one of the eight canonical groups
func Valid(g string) bool {
	_, ok := donateTo[g]
	return ok
}

// Normalize upper-cases and trims a group string. The result is not
// guaranteed to be valid.
func Normalize(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

// CanDonate tells if a donor of group donor may give to a recipient of
// group recipient. Unknown groups on either side are incompatible.
func CanDonate(donor, recipient string) bool {
	for _, g := range donateTo[donor] {
		if g == recipient {
			return true
		}
	}
	return false
}

// CanReceiveFrom returns the donor groups a recipient group accepts.
// An unknown group receives from nobody.
func CanReceiveFrom(recipient string) []string {
	donors := receiveFrom[recipient]
	result := make([]string, len(donors))
	copy(result, donors)
	return result
}

// CanDonateTo returns the recipient groups a donor group can give to.
func CanDonateTo(donor string) []string {
	recipients := donateTo[donor]
	result := make([]string, len(recipients))
	copy(result, recipients)
	return result
}
