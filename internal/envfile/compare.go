package envfile

import "sort"

// VarDiff describes one variable's state across two files. OldValue or
// NewValue is nil when the variable is absent on that side.
type VarDiff struct {
	Name     string  `json:"name"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// CompareResult buckets every variable from two .env files.
type CompareResult struct {
	Removed   []VarDiff `json:"removed"`
	Added     []VarDiff `json:"added"`
	Changed   []VarDiff `json:"changed"`
	Identical []VarDiff `json:"identical"`
}

// Compare parses both files and categorizes every variable as removed,
// added, changed, or identical.
func Compare(oldPath, newPath string) (*CompareResult, error) {
	oldVars, err := Parse(oldPath)
	if err != nil {
		return nil, err
	}
	newVars, err := Parse(newPath)
	if err != nil {
		return nil, err
	}

	result := &CompareResult{}

	for _, name := range sortedNames(oldVars) {
		oldVal := oldVars[name]
		newVal, inNew := newVars[name]
		switch {
		case !inNew:
			result.Removed = append(result.Removed, VarDiff{Name: name, OldValue: &oldVal})
		case oldVal == newVal:
			result.Identical = append(result.Identical, VarDiff{Name: name, OldValue: &oldVal, NewValue: &newVal})
		default:
			result.Changed = append(result.Changed, VarDiff{Name: name, OldValue: &oldVal, NewValue: &newVal})
		}
	}

	for _, name := range sortedNames(newVars) {
		if _, inOld := oldVars[name]; !inOld {
			newVal := newVars[name]
			result.Added = append(result.Added, VarDiff{Name: name, NewValue: &newVal})
		}
	}

	return result, nil
}

func sortedNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
