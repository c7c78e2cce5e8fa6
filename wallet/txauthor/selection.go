// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/pillarproject/btcwallet/wallet/txrules"
	"github.com/pillarproject/btcwallet/wallet/txsizes"
	"github.com/pillarproject/btcwallet/wtxmgr"
)

// ChangeSource returns the address that receives value as change.  It is
// only called when the selected inputs leave change above the dust limit.
type ChangeSource func(value btcutil.Amount) (string, error)

// selectionState holds one candidate set of inputs.  States are never
// modified once built; extending a selection produces a new state.
type selectionState struct {
	// feeRate is the rate the transaction pays.
	feeRate txrules.FeeRate

	// targetAmount is the summed value of every payment output.
	targetAmount btcutil.Amount

	// outputScriptSizes are the script lengths of the payment outputs,
	// used for size estimation.
	outputScriptSizes []int

	// inputs are the credits selected so far.
	inputs []wtxmgr.Credit

	// inputTotal is the summed value of inputs.
	inputTotal btcutil.Amount
}

// withInputs returns a copy of the state selecting exactly inputs.
func (s *selectionState) withInputs(inputs ...wtxmgr.Credit) selectionState {
	selected := make([]wtxmgr.Credit, len(inputs))
	copy(selected, inputs)

	return selectionState{
		feeRate:           s.feeRate,
		targetAmount:      s.targetAmount,
		outputScriptSizes: s.outputScriptSizes,
		inputs:            selected,
		inputTotal: fn.Sum(fn.Map(selected,
			func(c wtxmgr.Credit) btcutil.Amount {
				return c.Amount
			},
		)),
	}
}

// fee returns the fee of a transaction spending the current inputs, with or
// without a P2PKH change output.
func (s *selectionState) fee(withChange bool) btcutil.Amount {
	changeScriptSize := 0
	if withChange {
		changeScriptSize = txsizes.P2PKHPkScriptSize
	}
	size := txsizes.EstimateSerializeSize(len(s.inputs),
		s.outputScriptSizes, changeScriptSize)

	return txrules.FeeForSerializeSize(s.feeRate, size)
}

// covers reports whether the inputs pay for every target and the fee of a
// transaction without change.
func (s *selectionState) covers() bool {
	return s.inputTotal >= s.targetAmount+s.fee(false)
}

// eligibleCredits returns the credits worth spending ordered largest first.
// Zero valued credits and repeated outpoints are dropped; ties are broken by
// outpoint so the order does not depend on the input order.
func eligibleCredits(utxos []wtxmgr.Credit) []wtxmgr.Credit {
	seen := make(map[wire.OutPoint]struct{}, len(utxos))
	candidates := make([]wtxmgr.Credit, 0, len(utxos))
	for _, c := range utxos {
		if c.Amount <= 0 {
			continue
		}
		if _, ok := seen[c.OutPoint]; ok {
			continue
		}
		seen[c.OutPoint] = struct{}{}
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return wtxmgr.CompareOutPoints(&a.OutPoint, &b.OutPoint) < 0
	})

	return candidates
}

func checkTargets(targets []TransactionTarget) error {
	if len(targets) == 0 {
		return fmt.Errorf("%w: no payment targets", ErrInvalidRequest)
	}
	for i, t := range targets {
		if t.Address == "" {
			return fmt.Errorf("%w: target %d has no address",
				ErrInvalidRequest, i)
		}
		if t.Value <= 0 || t.Value > btcutil.MaxSatoshi {
			return fmt.Errorf("%w: target %d has value %v",
				ErrInvalidRequest, i, t.Value)
		}
		if t.PkScriptSize < 0 {
			return fmt.Errorf("%w: target %d has script size %d",
				ErrInvalidRequest, i, t.PkScriptSize)
		}
	}
	return nil
}

// SelectCoins plans a transaction paying targets from utxos at feeRate.
//
// The plan spends as few inputs as possible: the smallest count k for which
// the k largest credits cover the targets and fee.  The last of those k
// inputs is then swapped for the smallest remaining credit that still covers,
// which keeps the input count while returning less change.  Change at or
// above the dust limit is paid to the address returned by change, smaller
// change is left to the miner.
//
// SelectCoins does not modify utxos and returns the same plan for the same
// arguments.  When the credits can not fund the targets the returned plan has
// IsValid false and a nil error.  Malformed requests return an error wrapping
// ErrInvalidRequest.
func SelectCoins(utxos []wtxmgr.Credit, targets []TransactionTarget,
	feeRate txrules.FeeRate, change ChangeSource) (*TransactionPlan, error) {

	if err := checkTargets(targets); err != nil {
		return nil, err
	}
	if feeRate <= 0 {
		return nil, fmt.Errorf("%w: fee rate %v", ErrInvalidRequest,
			feeRate)
	}
	if change == nil {
		return nil, fmt.Errorf("%w: no change source", ErrInvalidRequest)
	}

	base := selectionState{
		feeRate: feeRate,
		targetAmount: fn.Sum(fn.Map(targets,
			func(t TransactionTarget) btcutil.Amount {
				return t.Value
			},
		)),
		outputScriptSizes: fn.Map(targets,
			func(t TransactionTarget) int {
				if t.PkScriptSize == 0 {
					return txsizes.P2PKHPkScriptSize
				}
				return t.PkScriptSize
			},
		),
	}

	candidates := eligibleCredits(utxos)
	for k := 1; k <= len(candidates); k++ {
		state := base.withInputs(candidates[:k]...)
		if !state.covers() {
			continue
		}

		// Candidates are sorted largest first, so walking back from the
		// end finds the smallest credit able to take the last slot.
		// candidates[k-1] itself always qualifies.
		prefix := candidates[:k-1:k-1]
		for j := len(candidates) - 1; j >= k-1; j-- {
			trial := base.withInputs(append(prefix, candidates[j])...)
			if trial.covers() {
				state = trial
				break
			}
		}

		return state.plan(targets, change)
	}

	log.Debugf("Insufficient funds: need %v plus fee at %v, "+
		"have %v in %d outputs", base.targetAmount, feeRate,
		base.withInputs(candidates...).inputTotal, len(candidates))

	return &TransactionPlan{IsValid: false}, nil
}

// plan turns a covering selection into a transaction plan, adding change
// when it is above the dust limit.
func (s *selectionState) plan(targets []TransactionTarget,
	change ChangeSource) (*TransactionPlan, error) {

	outputs := make([]PlanOutput, 0, len(targets)+1)
	for _, t := range targets {
		outputs = append(outputs, PlanOutput{
			Address: t.Address,
			Value:   t.Value,
		})
	}

	// Without change the whole remainder goes to the miner.
	fee := s.inputTotal - s.targetAmount

	feeWithChange := s.fee(true)
	remainder := s.inputTotal - s.targetAmount - feeWithChange
	if remainder > 0 && !txrules.IsDustAmount(remainder,
		txsizes.P2PKHPkScriptSize, txrules.DefaultRelayFeePerKb) {

		changeAddr, err := change(remainder)
		if err != nil {
			return nil, fmt.Errorf("change address: %w", err)
		}
		if changeAddr == "" {
			return nil, fmt.Errorf("%w: empty change address",
				ErrInvalidRequest)
		}

		outputs = append(outputs, PlanOutput{
			Address:  changeAddr,
			Value:    remainder,
			IsChange: true,
		})
		fee = feeWithChange
	}

	return &TransactionPlan{
		Inputs:  s.inputs,
		Outputs: outputs,
		Fee:     fee,
		IsValid: true,
	}, nil
}
