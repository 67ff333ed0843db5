// Package testsupport holds integration-test-only helpers that never sit
// on the production client surface - funding a freshly generated keypair
// against a local/test network's friendbot before exercising a client.
package testsupport

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Fund requests funding for publicKey from friendbotURL. It only works
// against test/local networks that run a friendbot.
func Fund(friendbotURL, publicKey string) error {
	url := fmt.Sprintf("%s?addr=%s", friendbotURL, publicKey)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return errors.Errorf("friendbot: bad status %s", res.Status)
	}
	return nil
}
