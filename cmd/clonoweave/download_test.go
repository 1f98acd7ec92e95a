package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReferenceURLsDefaultsToHuman(t *testing.T) {
	urls := getReferenceURLs("")
	require.Len(t, urls, 2)
	for _, u := range urls {
		require.Contains(t, u, "human")
	}
}

func TestGetReferenceURLsMouse(t *testing.T) {
	urls := getReferenceURLs("Mouse")
	require.Len(t, urls, 2)
	for _, u := range urls {
		require.Contains(t, u, "mouse")
	}
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "512 B", formatSize(512))
	require.Equal(t, "1.0 KiB", formatSize(1024))
	require.Equal(t, "2.0 MiB", formatSize(2*1024*1024))
}
