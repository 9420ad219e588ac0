package product

import (
	"path"
	"strings"
)

// DefaultTag is used for references that do not carry a tag.
const DefaultTag = "latest"

// Reference points to an image in a registry. Two references are the same
// when their canonical String forms are identical.
type Reference struct {
	// Repository is the full repository path including the registry host.
	Repository string
	// Tag is the tag, or the digest for references pinned with '@'.
	Tag string
	// Pinned is set for digest references (repo@sha256:...).
	Pinned bool
}

// ParseReference parses "repo[:tag]" or "repo@digest". A port in the
// registry host is not mistaken for a tag.
func ParseReference(raw string) (Reference, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, false
	}
	if repo, dgst, ok := strings.Cut(raw, "@"); ok {
		if repo == "" || dgst == "" {
			return Reference{}, false
		}
		return Reference{Repository: repo, Tag: dgst, Pinned: true}, true
	}
	slash := strings.LastIndex(raw, "/")
	if colon := strings.LastIndex(raw, ":"); colon > slash {
		if colon == 0 {
			return Reference{}, false
		}
		tag := raw[colon+1:]
		if tag == "" {
			tag = DefaultTag
		}
		return Reference{Repository: raw[:colon], Tag: tag}, true
	}
	return Reference{Repository: raw, Tag: DefaultTag}, true
}

// NewReference builds a reference from the registry/repoPath/name:tag
// convention used in product metadata and values files.
func NewReference(registry, repoPath, name, tag string) Reference {
	return Reference{Repository: path.Join(registry, repoPath, name), Tag: tag}
}

func (r Reference) String() string {
	if r.Pinned {
		return r.Repository + "@" + r.Tag
	}
	return r.Repository + ":" + r.Tag
}

// Name returns the last element of the repository path.
func (r Reference) Name() string {
	return path.Base(r.Repository)
}

// Host returns the registry host of the reference, or "" if the first path
// element does not look like one.
func (r Reference) Host() string {
	host, _, ok := strings.Cut(r.Repository, "/")
	if !ok || !strings.ContainsAny(host, ".:") && host != "localhost" {
		return ""
	}
	return host
}

// WithoutHost returns the canonical string with the registry host removed.
func (r Reference) WithoutHost() string {
	s := r.String()
	if host := r.Host(); host != "" {
		return strings.TrimPrefix(s, host+"/")
	}
	return s
}
