package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hephaestack/pnoh-eshop/services"
)

func TestNormalizeImageURL(t *testing.T) {
	assert.Equal(t, "", services.NormalizeImageURL(""))
	assert.Equal(t, "", services.NormalizeImageURL("   "))
	assert.Equal(t, "", services.NormalizeImageURL("not a url"))
	assert.Equal(t, "", services.NormalizeImageURL("ftp://example.com/a.png"))
	assert.Equal(t, "", services.NormalizeImageURL("/relative/a.png"))

	assert.Equal(t, "https://cdn.example.com/a.png",
		services.NormalizeImageURL("https://cdn.example.com/a.png"))
}

func TestNormalizeImageURL_DropboxShareLink(t *testing.T) {
	got := services.NormalizeImageURL("https://www.dropbox.com/s/abc/img.jpg?dl=0")
	assert.Equal(t, "https://www.dropbox.com/s/abc/img.jpg?raw=1", got)
}

func TestNormalizeImageURL_DropboxAlreadyRaw(t *testing.T) {
	got := services.NormalizeImageURL("https://www.dropbox.com/s/abc/img.jpg?raw=1")
	assert.Equal(t, "https://www.dropbox.com/s/abc/img.jpg?raw=1", got)
}
