package domain

import (
	"errors"
	"net/url"
	"strings"
)

var ErrInvalidDeepLink = errors.New("invalid deep link")

const deepLinkHost = "chat"

// BuildDeepLink returns the link encoded into room QR codes and share links.
func BuildDeepLink(scheme, roomID string) string {
	return scheme + "://" + deepLinkHost + "/" + url.PathEscape(roomID)
}

// ParseDeepLink extracts the room id from a deep link. Accepted forms are
// "<scheme>://chat/<id>", "<scheme>:///chat/<id>", Expo development links
// such as "exp://host:port/--/chat/<id>", and the bare "chat/<id>".
func ParseDeepLink(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", ErrInvalidDeepLink
	}

	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")

	if u.Host != deepLinkHost {
		if len(segments) > 0 && segments[0] == "--" {
			segments = segments[1:]
		}
		if len(segments) == 0 || segments[0] != deepLinkHost {
			return "", ErrInvalidDeepLink
		}
		segments = segments[1:]
	}
	if len(segments) != 1 || segments[0] == "" {
		return "", ErrInvalidDeepLink
	}

	roomID, err := url.PathUnescape(segments[0])
	if err != nil || roomID == "" {
		return "", ErrInvalidDeepLink
	}
	return roomID, nil
}
