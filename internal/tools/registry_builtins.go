package tools

// Store is the subset of *boardstore.Store the built-in tools depend on.
type Store interface {
	EmailConfigLoader
	DescriptionLoader
}

// RegisterBuiltins populates reg with every built-in tool that does not
// need to re-enter the CLI (run_bash, run_python, project_files/file_ops,
// send_email/email, web_search, get_description). The four CLI-reentrant
// tools (taskter_task/agent/okrs/tools) are registered separately by the
// cli package via NewReentrantTool, since only it can supply the
// in-process command dispatch they wrap.
func RegisterBuiltins(reg *Registry, store Store) {
	reg.Register("run_bash", Tool{Declaration: runBashDeclaration(), Invoke: runBash})
	reg.Register("run_python", Tool{Declaration: runPythonDeclaration(), Invoke: runPython})

	projectFilesTool := Tool{Declaration: projectFilesDeclaration(), Invoke: projectFiles}
	reg.Register("project_files", projectFilesTool)
	reg.Register("file_ops", projectFilesTool)

	sendEmailTool := NewSendEmailTool(store)
	reg.Register("send_email", sendEmailTool)
	reg.Register("email", sendEmailTool)

	reg.Register("web_search", Tool{Declaration: webSearchDeclaration(), Invoke: webSearch})
	reg.Register("get_description", NewGetDescriptionTool(store))
}
