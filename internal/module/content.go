// Package module holds the user-authored script texts that define a scripted
// audio module, the packaged library that is composed around them, and the
// packaged default and example modules.
package module

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
)

// File names used when a Content is persisted as a workspace directory.
const (
	InitFile      = "init.js"
	ResetFile     = "reset.js"
	TriggerFile   = "trigger.js"
	RunFile       = "run.js"
	InterfaceFile = "interface.js"
)

// Files lists the workspace file names in field order.
var Files = [...]string{InitFile, ResetFile, TriggerFile, RunFile, InterfaceFile}

var (
	// ErrMalformedCode is returned by Decode for share codes that do not have
	// the expected shape.
	ErrMalformedCode = errors.New("malformed module code")
	// ErrHashMismatch is returned by Decode when the embedded identity does
	// not match the decoded scripts.
	ErrHashMismatch = errors.New("module code hash mismatch")
)

// Content is the five script texts defining one module. It is a plain value:
// replace it wholesale rather than editing a shared copy.
type Content struct {
	Init      string `json:"init"`
	Reset     string `json:"reset"`
	Trigger   string `json:"trigger"`
	Run       string `json:"run"`
	Interface string `json:"interface"`
}

// Hash returns the module identity. Only the four executable texts take part;
// Interface is presentation data. Each field is length-prefixed so moving
// text from one field to the next yields a different hash.
func (c Content) Hash() uint64 {
	h := xxh3.New()
	var n [8]byte
	for _, s := range [...]string{c.Init, c.Reset, c.Trigger, c.Run} {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		_, _ = h.Write(n[:])
		_, _ = h.WriteString(s)
	}
	return h.Sum64()
}

// ID is the lowercase hexadecimal rendering of Hash.
func (c Content) ID() string {
	return strconv.FormatUint(c.Hash(), 16)
}

// Field returns the text stored under a workspace file name.
func (c Content) Field(file string) (string, bool) {
	switch file {
	case InitFile:
		return c.Init, true
	case ResetFile:
		return c.Reset, true
	case TriggerFile:
		return c.Trigger, true
	case RunFile:
		return c.Run, true
	case InterfaceFile:
		return c.Interface, true
	}
	return "", false
}

// SetField stores text under a workspace file name.
func (c *Content) SetField(file, text string) bool {
	switch file {
	case InitFile:
		c.Init = text
	case ResetFile:
		c.Reset = text
	case TriggerFile:
		c.Trigger = text
	case RunFile:
		c.Run = text
	case InterfaceFile:
		c.Interface = text
	default:
		return false
	}
	return true
}

const codeSeparator = `\`

// Encode renders the content as a single-line share code: the hex identity
// followed by the five texts in URL-safe base64, separated by backslashes.
func (c Content) Encode() string {
	parts := make([]string, 0, 1+len(Files))
	parts = append(parts, c.ID())
	for _, file := range Files {
		text, _ := c.Field(file)
		parts = append(parts, base64.URLEncoding.EncodeToString([]byte(text)))
	}
	return strings.Join(parts, codeSeparator)
}

// Decode parses a share code produced by Encode.
func Decode(code string) (Content, error) {
	parts := strings.Split(strings.TrimSpace(code), codeSeparator)
	if len(parts) != 1+len(Files) {
		return Content{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedCode, 1+len(Files), len(parts))
	}
	var c Content
	for i, file := range Files {
		text, err := base64.URLEncoding.DecodeString(parts[i+1])
		if err != nil {
			return Content{}, fmt.Errorf("%w: %s: %w", ErrMalformedCode, file, err)
		}
		c.SetField(file, string(text))
	}
	if id := c.ID(); !strings.EqualFold(id, parts[0]) {
		return Content{}, fmt.Errorf("%w: code claims %s, scripts hash to %s", ErrHashMismatch, parts[0], id)
	}
	return c, nil
}
