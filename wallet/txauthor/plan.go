// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txauthor

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/pillarproject/btcwallet/wtxmgr"
)

// TransactionTarget is a payment the transaction must make.
type TransactionTarget struct {
	// Address is the encoded destination address.
	Address string

	// Value is the amount paid to Address.
	Value btcutil.Amount

	// PkScriptSize is the length of the output script paying Address.
	// Zero means a P2PKH script.
	PkScriptSize int
}

// PlanOutput is an output of a planned transaction.
type PlanOutput struct {
	Address  string
	Value    btcutil.Amount
	IsChange bool
}

// TransactionPlan is the result of coin selection: the outputs to spend, the
// outputs to create, and the fee paid.  A plan that could not be funded has
// IsValid set to false and no inputs or outputs.
type TransactionPlan struct {
	Inputs  []wtxmgr.Credit
	Outputs []PlanOutput
	Fee     btcutil.Amount
	IsValid bool
}

// TotalInput returns the summed value of the plan's inputs.
func (p *TransactionPlan) TotalInput() btcutil.Amount {
	return fn.Sum(fn.Map(p.Inputs, func(c wtxmgr.Credit) btcutil.Amount {
		return c.Amount
	}))
}

// TotalOutput returns the summed value of the plan's outputs, change
// included.
func (p *TransactionPlan) TotalOutput() btcutil.Amount {
	return fn.Sum(fn.Map(p.Outputs, func(o PlanOutput) btcutil.Amount {
		return o.Value
	}))
}

// ChangeIndex returns the index of the change output, if the plan has one.
func (p *TransactionPlan) ChangeIndex() fn.Option[int] {
	for i, o := range p.Outputs {
		if o.IsChange {
			return fn.Some(i)
		}
	}
	return fn.None[int]()
}

// Change returns the value returned to the wallet, zero without a change
// output.
func (p *TransactionPlan) Change() btcutil.Amount {
	return fn.MapOptionZ(p.ChangeIndex(), func(i int) btcutil.Amount {
		return p.Outputs[i].Value
	})
}

// CheckSanity verifies that a valid plan spends each outpoint at most once,
// carries no negative or out of range values, and conserves value:
// inputs = outputs + fee.
func (p *TransactionPlan) CheckSanity() error {
	if !p.IsValid {
		return fmt.Errorf("%w: plan is not funded", ErrInvalidPlan)
	}
	if len(p.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidPlan)
	}
	if len(p.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs", ErrInvalidPlan)
	}

	seen := make(map[wire.OutPoint]struct{}, len(p.Inputs))
	for _, in := range p.Inputs {
		if _, ok := seen[in.OutPoint]; ok {
			return fmt.Errorf("%w: outpoint %v spent twice",
				ErrInvalidPlan, in.OutPoint)
		}
		seen[in.OutPoint] = struct{}{}

		if in.Amount <= 0 || in.Amount > btcutil.MaxSatoshi {
			return fmt.Errorf("%w: input %v has value %v",
				ErrInvalidPlan, in.OutPoint, in.Amount)
		}
	}

	changeOutputs := 0
	for i, out := range p.Outputs {
		if out.Address == "" {
			return fmt.Errorf("%w: output %d has no address",
				ErrInvalidPlan, i)
		}
		if out.Value < 0 || out.Value > btcutil.MaxSatoshi {
			return fmt.Errorf("%w: output %d has value %v",
				ErrInvalidPlan, i, out.Value)
		}
		if out.IsChange {
			changeOutputs++
		}
	}
	if changeOutputs > 1 {
		return fmt.Errorf("%w: %d change outputs", ErrInvalidPlan,
			changeOutputs)
	}

	if p.Fee < 0 {
		return fmt.Errorf("%w: negative fee %v", ErrInvalidPlan, p.Fee)
	}

	totalIn, totalOut := p.TotalInput(), p.TotalOutput()
	if totalIn != totalOut+p.Fee {
		return fmt.Errorf("%w: inputs %v != outputs %v + fee %v",
			ErrInvalidPlan, totalIn, totalOut, p.Fee)
	}

	return nil
}
