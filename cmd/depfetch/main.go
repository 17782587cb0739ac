// Command depfetch acquires pinned dependency files into a local cache and
// prints the resulting cache roots and library declarations.
package main

func main() {
	execute()
}
