package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessWithPagination(t *testing.T) {
	res := SuccessWithPagination(200, []string{"a", "b"}, 2, 2, 5)

	assert.Equal(t, "success", res.Status)
	data, ok := res.Data.(PagedData)
	assert.True(t, ok)
	assert.Equal(t, PageMeta{Page: 2, Limit: 2, Total: 5, TotalPages: 3}, data.Meta)
	assert.Equal(t, []string{"a", "b"}, data.Items)
}

func TestError(t *testing.T) {
	res := Error(409, "vendor already exists")

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, 409, res.StatusCode)
	assert.Nil(t, res.Data)
}
