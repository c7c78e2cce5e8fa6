// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txrules provides functions that help establish whether or not a
transaction abides by non-consensus rules for things like the daemon relay
policy, and the fee rates the wallet pays for each confirmation speed.

Dust

An output is dust when spending it would cost more than a third of its value
at the relay fee rate.  The cost is the serialize size of the output plus the
size of the P2PKH input which later redeems it.  With the default relay fee of
1000 satoshi per kilobyte a P2PKH output below 546 satoshi is dust.

Fee Rates

Fee rates are expressed in satoshi per byte of serialized transaction.  The
wallet offers three speed tiers (slow, normal and fast), all of which default
to DefaultFeeRate until configured otherwise.
*/
package txrules
