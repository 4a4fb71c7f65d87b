package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashObjectDeterministic(t *testing.T) {
	a := HashObject("foo", "bar")
	b := HashObject("foo", "bar")
	assert.Equal(t, a, b)
	assert.Len(t, a, hashLength)
}

func TestHashObjectOrderSensitive(t *testing.T) {
	a := HashObject("foo", "bar")
	b := HashObject("bar", "foo")
	assert.NotEqual(t, a, b)
}

func TestFileHashesCombinedHashIgnoresMapOrder(t *testing.T) {
	a := FileHashes{"b.txt": "2", "a.txt": "1"}
	b := FileHashes{"a.txt": "1", "b.txt": "2"}
	assert.Equal(t, a.CombinedHash(), b.CombinedHash())
}

func TestTaskHashableChangesWithDependencyHash(t *testing.T) {
	base := TaskHashable{Task: "build", GlobalHash: "g1"}
	changed := base
	changed.TaskDependencyHashes = []string{"dep1hash"}
	assert.NotEqual(t, base.Hash(), changed.Hash())
}
