// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers for the idea board API.

# Handler Types

Each handler is a struct holding its dependencies:

  - IdeaHandler: paged listing and creation of ideas
  - ChargeHandler: Lightning invoices for a vote
  - VoteHandler: backend hooks that credit a paid vote or remove an idea

Handlers depend on the IdeaStore and Charger interfaces, so the same code
serves the SQL store and the hosted store:

	ideas := handlers.NewIdeaHandler(store, logger, collector)

# Ideas

	GET  /ideas?page=1&page_size=10 → ListIdeas (newest first, with total)
	POST /ideas                     → CreateIdea (validated, 201)

page defaults to 1 and page_size to 10, capped at 100.

# Charges

	POST /api/opennode/charge {"ideaId": 7, "amount": 1000}

Answers {id, invoice, amount}. A missing or non-positive field is a 400
with "Missing required fields"; a provider failure is a 500 with "Failed to
create charge".

# Vote Credit

	POST   /ideas/{id}/votes → CreditVote
	DELETE /ideas/{id}       → DeleteIdea

Both require the X-Credit-Key header (or a bearer token) to match the
configured credit key. With no key configured they answer 403.
*/
package handlers
