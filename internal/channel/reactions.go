package channel

import (
	"context"
	"errors"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/types"
)

// reactionState tracks the lazy per-message reaction cache.
type reactionState int

const (
	reactionUnknown reactionState = iota
	reactionLoading
	reactionLoaded
)

// EnsureReactions starts background fetches for messages whose reaction
// summaries are unknown. Call it with the message ids currently on
// screen; messages already loaded or loading are skipped. A
// reaction_update event arriving mid-fetch wins over the fetch result.
func (s *Session) EnsureReactions(messageIDs ...string) {
	for _, id := range messageIDs {
		s.ensureReaction(id)
	}
}

func (s *Session) ensureReaction(id string) {
	s.mu.Lock()
	if !s.active || s.reactionState[id] != reactionUnknown {
		s.mu.Unlock()
		return
	}
	s.reactionState[id] = reactionLoading
	ctx, cancel := context.WithCancel(s.loadCtx)
	s.reactionCancel[id] = cancel
	gen := s.gen
	s.mu.Unlock()

	go func() {
		summary, err := s.api.Reactions(ctx, id)
		cancel()

		s.mu.Lock()
		delete(s.reactionCancel, id)
		if s.gen != gen || s.reactionState[id] != reactionLoading {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.reactionState[id] = reactionUnknown
			s.mu.Unlock()
			if !errors.Is(err, context.Canceled) {
				s.logf("reactions %s: %v", id, err)
			}
			return
		}
		// State change and store write stay in one critical section:
		// an event applying between them could otherwise be clobbered
		// by this stale fetch result.
		s.reactionState[id] = reactionLoaded
		s.store.SetReaction(id, summary)
		s.mu.Unlock()
		s.notify()
	}()
}

// applyReactionSummary records an authoritative summary (from an event
// or a toggle response) and cancels any fetch in flight for the
// message. The summary lands in the store under the session lock so a
// concurrently completing fetch sees the loaded state before it can
// write its own result.
func (s *Session) applyReactionSummary(id string, summary types.ReactionSummary) {
	s.mu.Lock()
	if cancel, ok := s.reactionCancel[id]; ok {
		cancel()
		delete(s.reactionCancel, id)
	}
	s.reactionState[id] = reactionLoaded
	s.store.SetReaction(id, summary)
	s.mu.Unlock()
}

// ToggleReaction flips the user's reaction on a message and applies the
// summary the server returns.
func (s *Session) ToggleReaction(ctx context.Context, messageID, emoji string) error {
	summary, err := s.api.ToggleReaction(ctx, messageID, api.ToggleReactionRequest{
		Emoji:     emoji,
		ActorID:   types.SenderUser,
		ActorType: "user",
	})
	if err != nil {
		return err
	}
	s.applyReactionSummary(messageID, summary)
	s.notify()
	return nil
}
