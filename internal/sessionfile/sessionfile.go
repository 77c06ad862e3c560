// Package sessionfile implements the durable mirror of the client session.
// It is a small JSON-file-backed key-value store keeping each value
// JSON-encoded under its own key, so the session survives process restarts.
package sessionfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/patric-chuzhbe/studytrack/internal/logger"
)

// UserKey and TokenKey are the two entries mirroring the session. The
// session manager always writes and clears them together.
const (
	UserKey  = "user"
	TokenKey = "token"
)

// SessionFile is a key-value store persisted as a single JSON file.
// Values are kept JSON-encoded in an in-memory cache and written through
// to disk on every mutation.
type SessionFile struct {
	fileName string
	cache    map[string]json.RawMessage
}

func initStoreFile(fileName string) error {
	storeFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(storeFile, `{}`)
	if err != nil {
		return err
	}
	return storeFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0600)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *map[string]json.RawMessage) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

// New opens or creates the session file. A file with malformed content is
// not an error: the store starts empty and the file is rewritten on the
// next Save or Clear.
func New(fileName string) (*SessionFile, error) {
	sessionFile := SessionFile{
		fileName: fileName,
		cache:    map[string]json.RawMessage{},
	}

	err := parseJSONFile(sessionFile.fileName, &sessionFile.cache)
	if os.IsNotExist(err) {
		err = initStoreFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(sessionFile.fileName, &sessionFile.cache)
	}
	if err != nil {
		logger.Log.Debugln("Error parsing the session file, starting empty: ", err)
		sessionFile.cache = map[string]json.RawMessage{}
	}

	return &sessionFile, nil
}

// Load decodes the value stored under key into value. It fails soft: an
// absent key or an undecodable stored value reports false, never an error.
func (f *SessionFile) Load(key string, value interface{}) bool {
	raw, found := f.cache[key]
	if !found {
		return false
	}

	err := json.Unmarshal(raw, value)
	if err != nil {
		logger.Log.Debugln("Error decoding the stored value: ", "key", key, "error", err)
		return false
	}

	return true
}

// Save encodes value under key and writes the store through to disk,
// overwriting any prior value.
func (f *SessionFile) Save(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshaling the value for key %q: %w", key, err)
	}

	f.cache[key] = raw

	return writeToJSONFile(f.fileName, f.cache)
}

// Clear removes the entry for key and writes the store through to disk.
// Clearing an absent key is not an error.
func (f *SessionFile) Clear(key string) error {
	delete(f.cache, key)

	return writeToJSONFile(f.fileName, f.cache)
}
