package proof

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func trustAll(ctx context.Context, ref ConstraintRef) (bool, error) { return true, nil }

// linearChain builds S1 <- S2 <- ... <- Sn rooted on assumption A0.
func linearChain(n int) *Object {
	steps := make([]Step, 0, n)
	prev := "A0"
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("S%d", i)
		steps = append(steps, Step{
			ID:         id,
			Rule:       "modus_ponens",
			Premises:   []string{prev},
			Conclusion: fmt.Sprintf("derived_%d", i),
		})
		prev = id
	}
	return &Object{
		ID:          "proof-chain",
		Target:      fmt.Sprintf("derived_%d", n),
		Assumptions: []string{"A0"},
		Steps:       steps,
	}
}

func TestCheckProvenLinearChain(t *testing.T) {
	checker := NewChecker(CheckerConfig{MaxDepth: 10})
	status, err := checker.Check(context.Background(), linearChain(10), VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusProven, status)
}

func TestCheckDepthCeiling(t *testing.T) {
	obj := linearChain(5)

	status, err := NewChecker(CheckerConfig{MaxDepth: 4}).Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusRefuted, status)

	status, err = NewChecker(CheckerConfig{MaxDepth: 5}).Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusProven, status)
}

func TestCheckUnresolvablePremise(t *testing.T) {
	obj := &Object{
		ID:     "proof-missing",
		Target: "conclusion",
		Steps: []Step{
			{ID: "S1", Premises: []string{"GHOST"}, Conclusion: "conclusion"},
		},
	}
	status, err := NewChecker(CheckerConfig{}).Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusRefuted, status)
}

func TestCheckCycleContradicts(t *testing.T) {
	obj := &Object{
		ID:     "proof-cycle",
		Target: "conclusion",
		Steps: []Step{
			{ID: "S1", Premises: []string{"S2"}, Conclusion: "a"},
			{ID: "S2", Premises: []string{"S3"}, Conclusion: "b"},
			{ID: "S3", Premises: []string{"S1"}, Conclusion: "c"},
		},
	}
	status, err := NewChecker(CheckerConfig{}).Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusContradictory, status)
}

func TestCheckSelfPremiseContradicts(t *testing.T) {
	obj := &Object{
		ID:     "proof-self",
		Target: "conclusion",
		Steps: []Step{
			{ID: "S1", Premises: []string{"S1"}, Conclusion: "a"},
		},
	}
	status, err := NewChecker(CheckerConfig{}).Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusContradictory, status)
}

func TestCheckSelfEndorsement(t *testing.T) {
	// S1 concludes the target from nothing; S2 cites S1. No graph cycle
	// exists, yet the endorsement is circular.
	obj := &Object{
		ID:     "proof-endorse",
		Target: "the_claim",
		Steps: []Step{
			{ID: "S1", Premises: nil, Conclusion: "the_claim"},
			{ID: "S2", Premises: []string{"S1"}, Conclusion: "restated"},
		},
	}
	status, err := NewChecker(CheckerConfig{}).Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusContradictory, status)
}

func TestCheckAxiomaticTargetUncitedIsProven(t *testing.T) {
	// Concluding the target from nothing is allowed as long as no other
	// step leans on it.
	obj := &Object{
		ID:     "proof-axiom",
		Target: "the_claim",
		Steps: []Step{
			{ID: "S1", Premises: nil, Conclusion: "the_claim"},
		},
	}
	status, err := NewChecker(CheckerConfig{}).Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	require.Equal(t, StatusProven, status)
}

func TestCheckInvariantClaims(t *testing.T) {
	base := func() *Object {
		return &Object{
			ID:          "proof-inv",
			Target:      "conclusion",
			Assumptions: []string{"A0"},
			Steps: []Step{
				{ID: "S1", Premises: []string{"A0"}, Conclusion: "conclusion"},
			},
			Required: []ConstraintRef{
				{ID: "INV-1", Source: `{"atom":"NO_EXFIL"}`},
				{ID: "INV-2", Source: `{"atom":"NO_PERSONAL_DATA"}`},
			},
		}
	}
	checker := NewChecker(CheckerConfig{})

	t.Run("unclaimed invariant is pending", func(t *testing.T) {
		obj := base()
		obj.Claims = map[string]bool{"INV-1": true}
		status, err := checker.Check(context.Background(), obj, VerifierFunc(trustAll))
		require.NoError(t, err)
		require.Equal(t, StatusPending, status)
		require.False(t, status.Terminal())
	})

	t.Run("claimed but unconfirmed is refuted", func(t *testing.T) {
		obj := base()
		obj.Claims = map[string]bool{"INV-1": true, "INV-2": true}
		deny := VerifierFunc(func(ctx context.Context, ref ConstraintRef) (bool, error) {
			return ref.ID != "INV-2", nil
		})
		status, err := checker.Check(context.Background(), obj, deny)
		require.NoError(t, err)
		require.Equal(t, StatusRefuted, status)
	})

	t.Run("claimed violation is refuted", func(t *testing.T) {
		obj := base()
		obj.Claims = map[string]bool{"INV-1": true, "INV-2": false}
		status, err := checker.Check(context.Background(), obj, VerifierFunc(trustAll))
		require.NoError(t, err)
		require.Equal(t, StatusRefuted, status)
	})

	t.Run("all claimed and confirmed is proven", func(t *testing.T) {
		obj := base()
		obj.Claims = map[string]bool{"INV-1": true, "INV-2": true}
		status, err := checker.Check(context.Background(), obj, VerifierFunc(trustAll))
		require.NoError(t, err)
		require.Equal(t, StatusProven, status)
	})
}

func TestCheckVerifierFaultPropagates(t *testing.T) {
	obj := &Object{
		ID:     "proof-fault",
		Target: "conclusion",
		Steps: []Step{
			{ID: "S1", Premises: nil, Conclusion: "conclusion-text"},
		},
		Required: []ConstraintRef{{ID: "INV-1"}},
		Claims:   map[string]bool{"INV-1": true},
	}
	fault := errors.New("ledger unreachable")
	failing := VerifierFunc(func(ctx context.Context, ref ConstraintRef) (bool, error) {
		return false, fault
	})

	_, err := NewChecker(CheckerConfig{}).Check(context.Background(), obj, failing)
	require.Error(t, err)
	require.ErrorIs(t, err, fault)
}

func TestCheckNilVerifierWithClaims(t *testing.T) {
	obj := &Object{
		ID:       "proof-noverifier",
		Target:   "c",
		Steps:    []Step{{ID: "S1", Conclusion: "c-text"}},
		Required: []ConstraintRef{{ID: "INV-1"}},
		Claims:   map[string]bool{"INV-1": true},
	}
	_, err := NewChecker(CheckerConfig{}).Check(context.Background(), obj, nil)
	require.ErrorIs(t, err, ErrNilVerifier)
}

func TestCheckMalformedResolvesRefuted(t *testing.T) {
	checker := NewChecker(CheckerConfig{})

	cases := []struct {
		name string
		obj  *Object
	}{
		{"nil object", nil},
		{"empty step id", &Object{Steps: []Step{{ID: "", Conclusion: "x"}}}},
		{"duplicate step id", &Object{Steps: []Step{
			{ID: "S1", Conclusion: "a"},
			{ID: "S1", Conclusion: "b"},
		}}},
		{"step shadows assumption", &Object{
			Assumptions: []string{"S1"},
			Steps:       []Step{{ID: "S1", Conclusion: "a"}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, err := checker.Check(context.Background(), tc.obj, VerifierFunc(trustAll))
			require.NoError(t, err)
			require.Equal(t, StatusRefuted, status)
		})
	}
}

func TestCheckDeterministic(t *testing.T) {
	obj := linearChain(8)
	obj.Required = []ConstraintRef{{ID: "INV-2"}, {ID: "INV-1"}, {ID: "INV-2"}}
	obj.Claims = map[string]bool{"INV-1": true, "INV-2": true}
	checker := NewChecker(CheckerConfig{})

	first, err := checker.Check(context.Background(), obj, VerifierFunc(trustAll))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := checker.Check(context.Background(), obj, VerifierFunc(trustAll))
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
