/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"fmt"
	"strings"
)

const lineWidth = 70

// PrintHeader prints a boxed section header for CLI output.
func PrintHeader(title string) {
	line := strings.Repeat("=", lineWidth)
	fmt.Println(line)
	fmt.Printf("  %s\n", title)
	fmt.Println(line)
}

// PrintSeparator prints a thin separator line.
func PrintSeparator() {
	fmt.Println(strings.Repeat("-", lineWidth))
}

// PrintField prints an aligned label/value pair.
func PrintField(label, value string) {
	fmt.Printf("  %-24s %s\n", label+":", value)
}
