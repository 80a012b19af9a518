package header

// SplitName splits an archive-relative path into the prefix and name
// header fields.
//
// Paths of up to 100 bytes fit entirely in the name field. Longer
// paths are split at the rightmost "/" at or before byte offset 155
// whose left side fits the 155-byte prefix field and whose right side
// fits the 100-byte name field. SplitName returns ErrNameTooLong when
// no such split point exists.
func SplitName(path string) (prefix, name string, err error) {
	if len(path) <= nameLen {
		return "", path, nil
	}

	last := prefixLen
	if last > len(path)-1 {
		last = len(path) - 1
	}
	for i := last; i > 0; i-- {
		if path[i] != '/' {
			continue
		}
		if len(path)-i-1 > nameLen {
			// Any split further left only lengthens the name side.
			break
		}
		return path[:i], path[i+1:], nil
	}
	return "", "", ErrNameTooLong
}
