package gateway

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPhonePrefix is prepended to national numbers that carry no
// international prefix. Mexican mobile numbers need the extra "1" after the
// country code on WhatsApp.
const DefaultPhonePrefix = "+521"

// leftoverTags matches unresolved data-namespace tags so they are stripped
// from rendered text instead of reaching the recipient verbatim.
var leftoverTags = regexp.MustCompile(`\{(?:v|p|l|cl|ven|c\d|g\d)\.[^}]+\}`)

// recipientNameTags are the tag spellings that all resolve to the current
// recipient's name during rendering.
var recipientNameTags = []string{"{cl.cliente}", "{cliente}", "{v.cliente}"}

// RenderTags substitutes the per-recipient convenience tags and then every
// resolved tag into text, finally stripping any tag that stayed
// unresolved.
func RenderTags(text string, tagValues map[string]string, name, email, phone string) string {
	for _, t := range recipientNameTags {
		text = strings.ReplaceAll(text, t, name)
	}
	text = strings.ReplaceAll(text, "{email_cliente}", email)
	text = strings.ReplaceAll(text, "{telefono_cliente}", phone)
	for tag, value := range tagValues {
		text = strings.ReplaceAll(text, tag, value)
	}
	return leftoverTags.ReplaceAllString(text, "")
}

// ResolveParams maps a template's ordered variable list to positional
// parameter values. Name tags resolve to the recipient's name, the contact
// convenience tags to their email and phone, everything else through the
// tag map with "N/A" when missing.
func ResolveParams(variables []string, tagValues map[string]string, name, email, phone string) []string {
	params := make([]string, 0, len(variables))
	for _, v := range variables {
		value := ""
		switch {
		case isRecipientNameTag(v):
			value = name
		case v == "{email_cliente}":
			value = email
		case v == "{telefono_cliente}":
			value = phone
		default:
			value = tagValues[v]
		}
		if value == "" {
			value = "N/A"
		}
		params = append(params, value)
	}
	return params
}

func isRecipientNameTag(tag string) bool {
	for _, t := range recipientNameTags {
		if t == tag {
			return true
		}
	}
	return false
}

// PositionalBody rewrites each template variable in body to its positional
// token, "{{1}}" through "{{n}}", in the order variables are declared.
func PositionalBody(body string, variables []string) string {
	for i, v := range variables {
		body = strings.ReplaceAll(body, v, fmt.Sprintf("{{%d}}", i+1))
	}
	return body
}

// NormalizePhone strips separator characters and applies the default
// international prefix unless the number already carries one.
func NormalizePhone(raw string) string {
	phone := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	if phone == "" {
		return ""
	}
	if strings.Contains(phone, "+") {
		return phone
	}
	return DefaultPhonePrefix + phone
}
