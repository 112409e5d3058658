/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes,
// e.g. "job_1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// ProductKey identifies a product within one inventory class. Allocation never mixes classes,
// so every per-product tally in the engine is keyed by this pair.
type ProductKey struct {
	Class     InventoryClass
	ProductID string
}

func (k ProductKey) String() string {
	return fmt.Sprintf("%s/%s", k.Class, k.ProductID)
}
