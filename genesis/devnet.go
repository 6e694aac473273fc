// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

// Devnet returns a throwaway genesis for local development: a fixed
// governor, a handful of funded accounts and permissive parameters.
func Devnet() *Spec {
	accounts := []Account{
		{Address: "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", Balance: "1000000000000000000000000"},
		{Address: "0xd3ae78222beadb038203be21ed5ce7c9b1bff602", Balance: "1000000000000000000000000"},
		{Address: "0x733b7269443c70de16bbf9b0615307884bcc5636", Balance: "1000000000000000000000000"},
		{Address: "0x115eabb4f62973d0dba138ab7df5c0375ec87256", Balance: "1000000000000000000000000"},
		{Address: "0x0f872421dc479f3c11edd89512731814d0598db5", Balance: "1000000000000000000000000"},
	}
	return &Spec{
		Name:            "devnet",
		Governor:        "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed",
		SubgraphService: "0x0000000000000000000000000000000073756273", // "subs"
		Params: Params{
			ProtocolTaxCut: 10_000, // 1%
			CurationCut:    100_000,
		},
		Accounts: accounts,
		AllowedVerifiers: []string{
			"0x0000000000000000000000000000000073756273",
		},
	}
}
