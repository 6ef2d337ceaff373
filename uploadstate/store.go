// Package uploadstate persists the client-side resumable session record: one
// small hidden file per object id next to the source file, holding exactly the
// upload id string. It survives process restart and is cheap to drop.
package uploadstate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/genostore/genostore/utils"
)

const stateFileName = "uploadid"

type Store struct {
	dir string
}

// NewStore builds a store rooted in the directory containing the transfer
// source file. Requires read/write access to that directory; asking the user
// for a separate working directory would be counter-intuitive.
func NewStore(srcFile string) *Store {
	return &Store{dir: filepath.Dir(srcFile)}
}

func (s *Store) stateDir(objectId string) string {
	return filepath.Join(s.dir, "."+objectId)
}

func (s *Store) stateFile(objectId string) string {
	return filepath.Join(s.stateDir(objectId), stateFileName)
}

// Create records uploadId for objectId, unconditionally replacing any prior
// record; a new session supersedes an old one.
func (s *Store) Create(objectId string, uploadId string) error {
	if err := os.RemoveAll(s.stateDir(objectId)); err != nil {
		return fmt.Errorf("clear previous state dir failed, err:%w", err)
	}
	if err := utils.SafeSaveIOToFile(s.stateFile(objectId), strings.NewReader(uploadId+"\n")); err != nil {
		return fmt.Errorf("write upload id failed, err:%w", err)
	}
	return nil
}

// Fetch returns the recorded upload id for objectId. A record that is missing,
// empty or unreadable reports absent rather than an error; a corrupted record
// must only force a fresh initiate, never crash resumption.
func (s *Store) Fetch(objectId string) (string, bool, error) {
	raw, err := os.ReadFile(s.stateFile(objectId))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read upload id failed, err:%w", err)
	}
	uploadId, _, _ := strings.Cut(string(raw), "\n")
	uploadId = strings.TrimSpace(uploadId)
	if len(uploadId) == 0 {
		return "", false, nil
	}
	return uploadId, true, nil
}

// Close removes the session record. Removing an absent record is not an error.
func (s *Store) Close(objectId string) error {
	if err := os.RemoveAll(s.stateDir(objectId)); err != nil {
		return fmt.Errorf("remove state dir failed, err:%w", err)
	}
	return nil
}
