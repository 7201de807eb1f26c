package platform

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"prebuild/internal/services"
)

// ElevatedCopyInvocation builds the PowerShell command that triggers a UAC
// prompt and copies src over dst from an elevated cmd.exe. The script is
// passed through -EncodedCommand so paths never pass through shell parsing;
// inside the script they are single-quoted PowerShell literals.
func ElevatedCopyInvocation(src, dst string) services.Invocation {
	script := "Start-Process -FilePath 'cmd.exe' -Verb RunAs -Wait -WindowStyle Hidden -ArgumentList @(" +
		strings.Join([]string{
			psQuote("/c"),
			psQuote("copy"),
			psQuote("/Y"),
			psQuote(`"` + src + `"`),
			psQuote(`"` + dst + `"`),
		}, ",") + ")"
	return services.Invocation{
		Binary: "powershell",
		Args:   []string{"-NoProfile", "-NonInteractive", "-EncodedCommand", encodePowerShell(script)},
	}
}

func psQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// encodePowerShell converts script to the base64 UTF-16LE form -EncodedCommand expects.
func encodePowerShell(script string) string {
	units := utf16.Encode([]rune(script))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return base64.StdEncoding.EncodeToString(buf)
}
