package scheduler

// ScriptDescriptor is what perfbench learns from a batch script. It is built
// once by ReadScript and never modified afterwards.
type ScriptDescriptor struct {
	ScriptPath   string
	Kind         Kind
	JobName      string
	Nodes        int    // always >= 1
	TasksPerNode int    // defaults to 1
	CpusPerTask  int    // defaults to 1
	TimeLimit    string // as written in the script
	Partition    string // SLURM partition or LSF queue
	Output       string
	Error        string

	// LSF family only; zero when the script does not set them.
	MasterCores int
	LogDir      string
	Interval    int

	commands []string
}

func newDescriptor(path string, kind Kind) *ScriptDescriptor {
	return &ScriptDescriptor{
		ScriptPath:   path,
		Kind:         kind,
		Nodes:        1,
		TasksPerNode: 1,
		CpusPerTask:  1,
	}
}

// Commands returns the non-directive command lines, in script order.
func (d *ScriptDescriptor) Commands() []string {
	out := make([]string, len(d.commands))
	copy(out, d.commands)
	return out
}

// HasMasterCores reports whether the script gave a master-core hint.
func (d *ScriptDescriptor) HasMasterCores() bool {
	return d.MasterCores > 0
}
