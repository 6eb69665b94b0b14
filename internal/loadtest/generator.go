package loadtest

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/rapport/internal/domain/model"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	performerTypes     = 6
)

// Score bands per performer type, as [min, min+range].
const (
	avgPerformerMin    = 50.0
	avgPerformerRange  = 25.0
	highPerformerMin   = 75.0
	highPerformerRange = 20.0
	lowPerformerMin    = 20.0
	lowPerformerRange  = 30.0
	elitePerformerMin  = 90.0
	elitePerformerMax  = 100.0
	veryLowMax         = 20.0
	wideRangeMax       = 100.0
)

// Constants for performance type cases.
const (
	caseAveragePerformer = iota
	caseHighPerformer
	caseLowPerformer
	caseElitePerformer
	caseVeryLowPerformer
	caseWideRange
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// Generate builds one plan per user. Each user gets a performer type and
// every record draws its six values from that type's band.
func Generate(users, conversations int) []Plan {
	plans := make([]Plan, users)
	for i := range plans {
		kind := performerType()
		records := make([]model.ScoreRecord, conversations)
		for j := range records {
			var s model.Scores
			for _, f := range model.Fields() {
				s.Set(f, generateVariedScore(kind))
			}
			records[j] = model.ScoreRecord{ConversationID: uuid.NewString(), Scores: s}
		}
		plans[i] = Plan{User: "load-" + uuid.NewString(), Records: records}
	}
	return plans
}

func performerType() int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(performerTypes))
	return n.Int64()
}

// generateVariedScore draws a one-decimal score within kind's band.
func generateVariedScore(kind int64) float64 {
	var v float64
	switch kind {
	case caseAveragePerformer:
		v = avgPerformerMin + getRandomFloat()*avgPerformerRange
	case caseHighPerformer:
		v = highPerformerMin + getRandomFloat()*highPerformerRange
	case caseLowPerformer:
		v = lowPerformerMin + getRandomFloat()*lowPerformerRange
	case caseElitePerformer:
		v = elitePerformerMin + getRandomFloat()*(elitePerformerMax-elitePerformerMin)
	case caseVeryLowPerformer:
		v = getRandomFloat() * veryLowMax
	default:
		v = getRandomFloat() * wideRangeMax
	}
	return model.Round1(v)
}
