package file

// PartitionMap is an iterator producing a PartitionLoader for each data file of a partition
type PartitionMap struct {
	files  []string
	source *DataSource
	total  int
}

// HasNext returns true iff there is another PartitionLoader remaining
func (pm *PartitionMap) HasNext() bool {
	return len(pm.files) > 0
}

// Next returns the next PartitionLoader for a file
func (pm *PartitionMap) Next() *PartitionLoader {
	result := &PartitionLoader{path: pm.files[0], source: pm.source}
	pm.files = pm.files[1:]
	pm.total++
	return result
}

// NumFiles returns the number of files handed out so far
func (pm *PartitionMap) NumFiles() int {
	return pm.total
}
