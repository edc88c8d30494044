package recommendation

import (
	"crypto/md5"
	"math/big"
)

type Variant string

const (
	VariantTreatment Variant = "treatment"
	VariantControl   Variant = "control"
)

type ExperimentConfig struct {
	Enabled      bool
	TestID       string
	TrafficSplit int // percent of users in treatment
}

// Assign buckets a user into the ensemble experiment. The same user and
// test id always land in the same variant. A disabled experiment puts
// everyone in treatment.
func (c ExperimentConfig) Assign(userID string) Variant {
	if !c.Enabled {
		return VariantTreatment
	}
	if bucket(userID, c.TestID) < c.TrafficSplit {
		return VariantTreatment
	}
	return VariantControl
}

func bucket(userID, testID string) int {
	sum := md5.Sum([]byte(userID + ":" + testID))
	n := new(big.Int).SetBytes(sum[:])
	return int(n.Mod(n, big.NewInt(100)).Int64())
}
