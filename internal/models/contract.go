// internal/models/contract.go
package models

// ContractType is an Islamic financing contract.
type ContractType string

const (
	ContractMurabaha  ContractType = "murabaha"
	ContractMusharaka ContractType = "musharaka"
	ContractMudaraba  ContractType = "mudaraba"
	ContractIjara     ContractType = "ijara"
	ContractIstisna   ContractType = "istisna"
)

// ContractTypes lists every supported contract type.
var ContractTypes = []ContractType{
	ContractMurabaha,
	ContractMusharaka,
	ContractMudaraba,
	ContractIjara,
	ContractIstisna,
}

// Valid reports whether c is one of the supported contract types.
func (c ContractType) Valid() bool {
	for _, ct := range ContractTypes {
		if c == ct {
			return true
		}
	}
	return false
}
