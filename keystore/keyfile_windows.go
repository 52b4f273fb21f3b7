// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keystore

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/windows"
)

// Groups that must never be granted access to a signing key, by SDDL alias
// and by SID string
var openGroups = []struct {
	alias string
	sid   string
	name  string
}{
	{"WD", "S-1-1-0", "Everyone"},
	{"BU", "S-1-5-32-545", `BUILTIN\Users`},
	{"AU", "S-1-5-11", "Authenticated Users"},
}

func openGroupName(trustee string) (string, bool) {
	for _, group := range openGroups {
		if trustee == group.alias || trustee == group.sid {
			return group.name, true
		}
	}
	return "", false
}

// checkOpenFilePermissions reads the DACL of an open key file by name. NTFS
// does not allow an open file to be replaced.
func checkOpenFilePermissions(f *os.File) error {
	sd, err := windows.GetNamedSecurityInfo(
		f.Name(),
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
	)
	if err != nil {
		return fmt.Errorf("failed to read ACL of key file %q: %w", f.Name(), err)
	}
	// sd is not freed, that needs unsafe.Pointer (go.dev/issue/73199)
	sddl := sd.String()
	if sddl == "" {
		return fmt.Errorf("empty security descriptor for key file %q", f.Name())
	}
	return checkSDDL(f.Name(), sddl)
}

// checkSDDL rejects a descriptor with no DACL, or whose DACL has an allow
// entry for one of openGroups
func checkSDDL(path, sddl string) error {
	_, dacl, found := strings.Cut(sddl, "D:")
	if !found {
		return fmt.Errorf(
			"%w: key file %q has no DACL",
			ErrInsecureFileMode,
			path,
		)
	}
	dacl, _, _ = strings.Cut(dacl, "S:")
	for _, entry := range strings.Split(dacl, "(")[1:] {
		entry, _, _ = strings.Cut(entry, ")")
		// type;flags;rights;object;inherit object;trustee
		fields := strings.Split(entry, ";")
		if len(fields) < 6 || fields[0] != "A" {
			continue
		}
		if name, ok := openGroupName(fields[5]); ok {
			return fmt.Errorf(
				"%w: key file %q grants access to %s",
				ErrInsecureFileMode,
				path,
				name,
			)
		}
	}
	return nil
}
