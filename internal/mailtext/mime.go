package mailtext

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// ExtractText extracts the plain-text content from a parsed message.
// For multipart messages it prefers text/plain parts; on any parse
// failure it falls back to the raw body rather than returning an error
// to the caller's classification path.
func ExtractText(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")

	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		bodyBytes, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", readErr
		}
		return string(bodyBytes), nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		bodyBytes, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", readErr
		}
		return string(bodyBytes), nil
	}

	mr := multipart.NewReader(msg.Body, boundary)
	var textParts bytes.Buffer

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		partType := part.Header.Get("Content-Type")
		if strings.Contains(strings.ToLower(partType), "text/plain") || partType == "" {
			partBytes, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			textParts.Write(partBytes)
			textParts.WriteString("\n")
		}
	}

	return textParts.String(), nil
}
