// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package opennode creates Lightning invoices for votes.

	client := opennode.New(opennode.Config{
		APIKey:        os.Getenv("OPENNODE_API_KEY"),
		PublicBaseURL: "https://do4btc.example",
	}, logger)
	charge, err := client.CreateCharge(ctx, ideaID, 1000)

Each charge is described as "Vote for idea #N" and tagged with order id
"idea-N". Failures are reported as ErrChargeFailed. Five consecutive
transport or 5xx failures open the circuit breaker for 30 seconds; 4xx
answers do not count.
*/
package opennode
