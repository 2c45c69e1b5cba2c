// Command transcribe turns piano recordings into note lists by evolving
// songs whose rendered wavelet transform matches the recording.
package main

func main() {
	Execute()
}
