package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sonroyaalmerol/appointment-dav/internal/config"
)

func TestParseAccounts(t *testing.T) {
	assert.Equal(t, []string{"acct1", "acct2"}, ParseAccounts([]string{"acct1, acct2", "acct1"}))
	assert.Equal(t, []string{}, ParseAccounts(nil))
	assert.Nil(t, ParseAccounts([]string{"acct1", "*"}))
}

func TestSafeAttr(t *testing.T) {
	assert.Equal(t, "uid", safeAttr("uid"))
	assert.Equal(t, "employeeNumber2", safeAttr("employeeNumber2)(x=*"))
}

func TestUserAttrList(t *testing.T) {
	attrs := userAttrList(config.LDAPConfig{UserAttr: "uid", AccountAttr: "practiceAccount"})
	assert.Contains(t, attrs, "practiceAccount")
	assert.Equal(t, 1, countOf(attrs, "uid"))
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := dialLDAPAuto(config.LDAPConfig{URL: "http://ldap.example.com"})
	assert.Error(t, err)
	_, err = dialLDAPAuto(config.LDAPConfig{URL: " "})
	assert.Error(t, err)
}

func countOf(list []string, v string) int {
	n := 0
	for _, s := range list {
		if s == v {
			n++
		}
	}
	return n
}
