package history

import "context"

// ExecForTest runs a raw statement against the store.
func (s *Store) ExecForTest(query string) error {
	_, err := s.exec(context.Background(), query)
	return err
}
