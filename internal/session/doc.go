// Package session holds the state of one polarsync run: the backend
// connection, the active test run snapshot, the lookup cache, the selection
// engine and the reconciler.
//
// A Session is opened once per invocation and must be closed on every exit
// path:
//
//	s, err := session.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	outcome, err := s.Execute(ctx, runner)
package session
