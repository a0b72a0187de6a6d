// Command steward is the permissionless/admin CLI for the decentralized
// stake-pool steward core.
package main

func main() {
	Execute()
}
