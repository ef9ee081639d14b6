package syntax

// Operation is a development task with a command template per family.
type Operation string

const (
	OpTest          Operation = "test"
	OpRun           Operation = "run"
	OpBuild         Operation = "build"
	OpInstall       Operation = "install"
	OpAddPackage    Operation = "add_package"
	OpLint          Operation = "lint"
	OpDeploy        Operation = "deploy"
	OpEnvVar        Operation = "env_var"
	OpListDir       Operation = "list_dir"
	OpChain         Operation = "chain"
	OpVenv          Operation = "venv"
	OpService       Operation = "service"
	OpServiceStatus Operation = "service_status"
	OpLogs          Operation = "logs"
)

var operations = []Operation{
	OpTest, OpRun, OpBuild, OpInstall, OpAddPackage, OpLint, OpDeploy,
	OpEnvVar, OpListDir, OpChain, OpVenv, OpServiceStatus, OpService, OpLogs,
}

// Family is an operating system family with its own command dialect.
type Family string

const (
	FamilyWindows Family = "windows"
	FamilyLinux   Family = "linux"
	FamilyDarwin  Family = "darwin"
	FamilyPi      Family = "pi"
)

var families = []Family{FamilyWindows, FamilyLinux, FamilyDarwin, FamilyPi}

// Families returns every family in display order.
func Families() []Family {
	return append([]Family(nil), families...)
}

// fallback is the family consulted when f has no row.
func (f Family) fallback() (Family, bool) {
	switch f {
	case FamilyPi, FamilyDarwin:
		return FamilyLinux, true
	case FamilyLinux:
		return FamilyDarwin, true
	case FamilyWindows:
		return "", false
	default:
		return "", false
	}
}

// Interpreter is the Python command assumed for the family when the
// probe found none, or when the command targets a remote Pi.
func (f Family) Interpreter() string {
	if f == FamilyWindows {
		return "python"
	}
	return "python3"
}

// Separator is the command chaining operator of the family's shell.
func (f Family) Separator() string {
	if f == FamilyWindows {
		return ";"
	}
	return "&&"
}

// ShellType is the display name of the family's shell dialect.
func (f Family) ShellType() string {
	if f == FamilyWindows {
		return "PowerShell"
	}
	return "Bash/Zsh"
}

// Template holds the unexpanded strings of one table row.
type Template struct {
	Command     string
	Explanation string
	Example     string
}

type entry struct {
	summary string
	// defaults fill operation-specific placeholders the caller left out.
	defaults map[string]string
	rows     map[Family]Template
}

var table = map[Operation]entry{
	OpTest: {
		summary: "Run the test suite",
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "cd {project_root}; {python_cmd} -m pytest",
				Explanation: "Run Python tests with pytest in PowerShell",
				Example:     "cd {project_root}; {python_cmd} -m pytest tests/ -v",
			},
			FamilyLinux: {
				Command:     "cd {project_root} && {python_cmd} -m pytest",
				Explanation: "Run Python tests with pytest",
				Example:     "cd {project_root} && {python_cmd} -m pytest tests/ -v",
			},
			FamilyPi: {
				Command:     "cd {project_root} && sudo {python_cmd} -m pytest",
				Explanation: "Run Python tests with sudo on a Raspberry Pi, where GPIO and Bluetooth need root",
				Example:     "cd {project_root} && sudo {python_cmd} -m pytest tests/ -v",
			},
		},
	},
	OpRun: {
		summary:  "Run the application",
		defaults: map[string]string{"module": "main"},
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "cd {project_root}; {python_cmd} -m {module}",
				Explanation: "Run the application module with the Windows Python launcher",
				Example:     "cd {project_root}; {python_cmd} -m {module} --help",
			},
			FamilyLinux: {
				Command:     "cd {project_root} && {python_cmd} -m {module}",
				Explanation: "Run the application module with {python_cmd}",
				Example:     "cd {project_root} && {python_cmd} -m {module} --help",
			},
			FamilyPi: {
				Command:     "cd {project_root} && sudo {python_cmd} -m {module}",
				Explanation: "Run the application module as root on a Raspberry Pi",
				Example:     "cd {project_root} && sudo {python_cmd} -m {module} --debug",
			},
		},
	},
	OpBuild: {
		summary: "Build a distributable package",
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "cd {project_root}; {python_cmd} -m build",
				Explanation: "Build the Python package in PowerShell",
				Example:     "cd {project_root}; {python_cmd} -m build --wheel",
			},
			FamilyLinux: {
				Command:     "cd {project_root} && {python_cmd} -m build",
				Explanation: "Build the Python package",
				Example:     "cd {project_root} && {python_cmd} -m build --wheel",
			},
		},
	},
	OpInstall: {
		summary: "Install project dependencies",
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "cd {project_root}; {python_cmd} -m pip install -r requirements.txt",
				Explanation: "Install dependencies from requirements.txt with pip",
				Example:     "cd {project_root}; {pip_cmd} install -e .[dev]",
			},
			FamilyLinux: {
				Command:     "cd {project_root} && {python_cmd} -m pip install -r requirements.txt",
				Explanation: "Install dependencies from requirements.txt with pip",
				Example:     "cd {project_root} && {pip_cmd} install -e .[dev]",
			},
		},
	},
	OpAddPackage: {
		summary:  "Add a single package",
		defaults: map[string]string{"package": "PACKAGE_NAME"},
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "{python_cmd} -m pip install {package}",
				Explanation: "Install one package into the active interpreter",
				Example:     "{python_cmd} -m pip install requests",
			},
			FamilyLinux: {
				Command:     "{python_cmd} -m pip install {package}",
				Explanation: "Install one package into the active interpreter",
				Example:     "{python_cmd} -m pip install requests",
			},
		},
	},
	OpLint: {
		summary: "Lint the code base",
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "cd {project_root}; ruff check .",
				Explanation: "Lint with ruff in PowerShell",
				Example:     "cd {project_root}; ruff check . --fix",
			},
			FamilyLinux: {
				Command:     "cd {project_root} && ruff check .",
				Explanation: "Lint with ruff",
				Example:     "cd {project_root} && ruff check . --fix",
			},
		},
	},
	OpDeploy: {
		summary: "Run the deployment script",
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     `.\deploy.ps1`,
				Explanation: "Run the PowerShell deployment script",
				Example:     `.\deploy.ps1 -Target production`,
			},
			FamilyLinux: {
				Command:     "./deploy.sh",
				Explanation: "Run the Bash deployment script",
				Example:     "./deploy.sh --target production",
			},
		},
	},
	OpEnvVar: {
		summary:  "Set an environment variable",
		defaults: map[string]string{"name": "VARIABLE_NAME", "value": "value"},
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "$env:{name} = '{value}'",
				Explanation: "Set an environment variable for the current PowerShell session",
				Example:     "$env:PYTHONPATH = '{project_root}'",
			},
			FamilyLinux: {
				Command:     "export {name}='{value}'",
				Explanation: "Export an environment variable in the current shell",
				Example:     "export PYTHONPATH='{project_root}'",
			},
		},
	},
	OpListDir: {
		summary: "List directory contents",
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "Get-ChildItem -Force",
				Explanation: "List all items, hidden ones included",
				Example:     "Get-ChildItem -Force {project_root}",
			},
			FamilyLinux: {
				Command:     "ls -la",
				Explanation: "List all entries in long format",
				Example:     "ls -la {project_root}",
			},
		},
	},
	OpChain: {
		summary:  "Run commands in sequence",
		defaults: map[string]string{"first": "cmd1", "second": "cmd2"},
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "{first}; {second}",
				Explanation: "PowerShell separates commands with ';' (use 'if ($?) {{ ... }}' to stop on failure)",
				Example:     "cd {project_root}; {python_cmd} -m pytest",
			},
			FamilyLinux: {
				Command:     "{first} && {second}",
				Explanation: "'&&' runs the next command only if the previous one succeeded",
				Example:     "cd {project_root} && {python_cmd} -m pytest",
			},
		},
	},
	OpVenv: {
		summary: "Create and activate a virtual environment",
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     `{python_cmd} -m venv .venv; .\.venv\Scripts\Activate.ps1`,
				Explanation: "Create a virtual environment and activate it in PowerShell",
				Example:     `cd {project_root}; {python_cmd} -m venv .venv; .\.venv\Scripts\Activate.ps1`,
			},
			FamilyLinux: {
				Command:     "{python_cmd} -m venv .venv && . .venv/bin/activate",
				Explanation: "Create a virtual environment and activate it in the current shell",
				Example:     "cd {project_root} && {python_cmd} -m venv .venv && . .venv/bin/activate",
			},
		},
	},
	OpServiceStatus: {
		summary:  "Show a background service's status",
		defaults: map[string]string{"service": "SERVICE_NAME"},
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "Get-Service -Name {service}",
				Explanation: "Show the status of a Windows service",
				Example:     "Get-Service -Name {service} | Format-List *",
			},
			FamilyLinux: {
				Command:     "systemctl status {service}",
				Explanation: "Show the state and recent log lines of a systemd unit",
				Example:     "systemctl status {service} --no-pager -n 50",
			},
			FamilyDarwin: {
				Command:     "launchctl print gui/$(id -u)/{service}",
				Explanation: "Show the state of a launchd agent",
				Example:     "launchctl list | grep {service}",
			},
		},
	},
	OpService: {
		summary:  "Restart a background service",
		defaults: map[string]string{"service": "SERVICE_NAME"},
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "Restart-Service -Name {service}",
				Explanation: "Restart a Windows service (requires an elevated prompt)",
				Example:     "Get-Service -Name {service}",
			},
			FamilyLinux: {
				Command:     "sudo systemctl restart {service}",
				Explanation: "Restart a systemd unit",
				Example:     "sudo systemctl status {service}",
			},
			FamilyDarwin: {
				Command:     "launchctl kickstart -k gui/$(id -u)/{service}",
				Explanation: "Restart a launchd agent",
				Example:     "launchctl print gui/$(id -u)/{service}",
			},
		},
	},
	OpLogs: {
		summary:  "Follow a service's logs",
		defaults: map[string]string{"service": "SERVICE_NAME"},
		rows: map[Family]Template{
			FamilyWindows: {
				Command:     "Get-WinEvent -ProviderName {service} -MaxEvents 50",
				Explanation: "Show recent event log entries for a provider",
				Example:     "Get-WinEvent -LogName Application -MaxEvents 20",
			},
			FamilyLinux: {
				Command:     "sudo journalctl -u {service} -f",
				Explanation: "Follow the systemd journal of a unit",
				Example:     "sudo journalctl -u {service} --since today",
			},
			FamilyDarwin: {
				Command:     "log stream --predicate 'process == \"{service}\"'",
				Explanation: "Stream unified log entries from a process",
				Example:     "log show --last 1h --predicate 'process == \"{service}\"'",
			},
		},
	},
}
