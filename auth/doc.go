// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth checks the shared credit key.

# Credit Key

Crediting a paid vote and deleting an idea are backend hooks, not viewer
actions. They require the configured CREDIT_KEY in the X-Credit-Key header
(or as a bearer token):

	key := auth.CreditKeyFromRequest(r)
	if err := auth.ValidateCreditKey(key, cfg.CreditKey); err != nil {
		// ErrCreditDisabled or ErrInvalidCreditKey
	}

The comparison runs in constant time. With no key configured the hooks are
disabled and every request is refused.
*/
package auth
