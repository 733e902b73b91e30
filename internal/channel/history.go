package channel

import (
	"context"
	"errors"
	"sync"
)

// historyLimit bounds the initial timeline load.
const historyLimit = 200

// loadHistory runs once per activation: seed the timeline from the
// local cache for an instant paint, replace it with the server's
// history, then fetch channel status in parallel. Results tagged with a
// stale generation are dropped, so a fast channel switch cannot land
// old history in the new channel.
func (s *Session) loadHistory(ctx context.Context, gen int) {
	if s.cache != nil {
		if msgs, err := s.cache.Messages(s.channel, historyLimit); err == nil && len(msgs) > 0 && s.genValid(gen) {
			s.store.ReplaceMessages(msgs)
			s.notify()
		}
	}

	msgs, err := s.api.Messages(ctx, s.channel, historyLimit)
	switch {
	case err != nil:
		if !errors.Is(err, context.Canceled) {
			s.logf("history %s: %v", s.channel, err)
		}
	case s.genValid(gen):
		s.store.ReplaceMessages(msgs)
		if s.cache != nil {
			if cerr := s.cache.Replace(s.channel, msgs); cerr != nil {
				s.logf("cache replace %s: %v", s.channel, cerr)
			}
		}
		s.notify()
	}

	var wg sync.WaitGroup
	for _, res := range s.pollResources() {
		res := res
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := res.run(ctx, gen); err != nil && !errors.Is(err, context.Canceled) {
				s.logf("load %s: %v", res.name, err)
			}
		}()
	}
	wg.Wait()
	s.notify()
}

func (s *Session) refreshConversation(ctx context.Context, gen int) error {
	status, err := s.api.Conversation(ctx, s.channel)
	if err != nil {
		return err
	}
	if !s.genValid(gen) {
		return nil
	}
	s.store.SetConversation(status)
	return nil
}

func (s *Session) refreshCollab(ctx context.Context, gen int) error {
	mode, err := s.api.CollabMode(ctx, s.channel)
	if err != nil {
		return err
	}
	if !s.genValid(gen) {
		return nil
	}
	s.store.SetCollab(mode)
	return nil
}

// refreshProject fetches the active project and follows up with the
// autonomy mode, since autonomy is keyed by project.
func (s *Session) refreshProject(ctx context.Context, gen int) error {
	project, err := s.api.ActiveProject(ctx, s.channel)
	if err != nil {
		return err
	}
	if !s.genValid(gen) {
		return nil
	}
	s.store.SetProject(project)
	return s.refreshAutonomy(ctx, gen, project.Project)
}

func (s *Session) refreshAutonomy(ctx context.Context, gen int, project string) error {
	if project == "" {
		return nil
	}
	mode, err := s.api.AutonomyMode(ctx, project)
	if err != nil {
		return err
	}
	if !s.genValid(gen) {
		return nil
	}
	s.store.SetAutonomy(mode)
	return nil
}

func (s *Session) refreshPermissions(ctx context.Context, gen int) error {
	policy, err := s.api.Permissions(ctx, s.channel)
	if err != nil {
		return err
	}
	if !s.genValid(gen) {
		return nil
	}
	s.store.SetPolicy(policy)
	return nil
}

func (s *Session) refreshProcesses(ctx context.Context, gen int) error {
	procs, err := s.api.Processes(ctx, s.channel)
	if err != nil {
		return err
	}
	if !s.genValid(gen) {
		return nil
	}
	s.store.SetProcesses(procs)
	return nil
}

// refreshApprovals reconciles the queue against the server's pending
// list. The server list is authoritative; locally buffered requests
// not yet visible server-side survive the merge.
func (s *Session) refreshApprovals(ctx context.Context, gen int) error {
	reqs, err := s.api.PendingApprovals(ctx, s.channel, s.store.Project().Project)
	if err != nil {
		return err
	}
	if !s.genValid(gen) {
		return nil
	}
	s.store.ReconcileApprovals(reqs, s.clock.Now())
	return nil
}
