// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, domain and view types.

# Request Types

  - CreateIdeaRequest: name, headline, lightning, idea
  - ChargeRequest: ideaId, amount

# Response Types

  - ListIdeasResponse: ideas, total, page, page_size
  - CreditVoteResponse: idea_id, votes
  - ErrorResponse: error, message

# Domain Types

  - Idea: one stored idea with its vote count
  - IdeaRow: loose row shape with title/description fallbacks, see ToIdea
  - ChangeEvent: INSERT, UPDATE, DELETE or SYNC from a change feed
  - Charge: Lightning invoice for a vote

# View Types

  - BodyView: one bubble as the renderer paints it
  - ModalView: vote modal state
  - Frame: full board view streamed to a viewer
*/
package models
